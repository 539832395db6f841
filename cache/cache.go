// Package cache keeps recent tool results for the API. It sits outside the
// runner; callers opt in per request with max_age.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/use-agent/pagelens/models"
)

// entry holds a cached record with its creation timestamp.
type entry struct {
	record    *models.ResultRecord
	createdAt time.Time
}

// Cache is an LRU of result records whose entries expire after ttl.
// It is safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[string, entry]
}

// New creates a Cache holding at most maxEntries records, each dropped
// ttl after it was stored.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Cache{lru: expirable.NewLRU[string, entry](maxEntries, nil, ttl)}
}

// Key derives a cache key from the tool id and its payload. Compound fields
// are hashed in name order.
func Key(toolID string, p models.Payload) string {
	h := sha256.New()
	h.Write([]byte(toolID))
	h.Write([]byte{0})
	h.Write([]byte(p.Input))

	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(p.Fields[name]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached record younger than maxAgeMs milliseconds. When
// maxAgeMs <= 0 no lookup is performed.
func (c *Cache) Get(key string, maxAgeMs int) (*models.ResultRecord, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e.record, true
}

// Set stores a record. Error records are not cached.
func (c *Cache) Set(key string, rec *models.ResultRecord) {
	if rec == nil || !rec.OK() {
		return
	}
	c.lru.Add(key, entry{record: rec, createdAt: time.Now()})
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
