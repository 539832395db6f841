package cache

import (
	"testing"
	"time"

	"github.com/use-agent/pagelens/models"
)

func TestKeyIgnoresFieldOrder(t *testing.T) {
	a := Key("serp-preview", models.Payload{Fields: map[string]string{"title": "t", "url": "u"}})
	b := Key("serp-preview", models.Payload{Fields: map[string]string{"url": "u", "title": "t"}})
	if a != b {
		t.Error("keys differ for the same fields")
	}
	if a == Key("serp-preview", models.Payload{Fields: map[string]string{"title": "t", "url": "v"}}) {
		t.Error("keys collide for different fields")
	}
	if Key("word-count", models.Payload{Input: "x"}) == Key("h1-extractor", models.Payload{Input: "x"}) {
		t.Error("keys collide across tools")
	}
}

func TestGetHonorsMaxAge(t *testing.T) {
	c := New(10, time.Hour)
	rec := models.NewResult().Messagef("done")
	c.Set("k", rec)

	if _, ok := c.Get("k", 0); ok {
		t.Error("maxAge 0 should skip the cache")
	}
	got, ok := c.Get("k", 60_000)
	if !ok || got != rec {
		t.Errorf("Get = %v, %v", got, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k", 5); ok {
		t.Error("entry older than maxAge returned")
	}
}

func TestErrorRecordsAreNotCached(t *testing.T) {
	c := New(10, time.Hour)
	c.Set("k", models.NewErrorResult(models.ErrCodeFetchFailure, models.MsgFetchFailed))
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a", models.NewResult())
	c.Set("b", models.NewResult())
	c.Get("a", 60_000)
	c.Set("c", models.NewResult())

	if _, ok := c.Get("b", 60_000); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a", 60_000); !ok {
		t.Error("a should still be cached")
	}
}
