package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/pagelens/models"
)

type execFunc func(ctx context.Context, toolID string, p models.Payload) *models.ResultRecord

func (f execFunc) Execute(ctx context.Context, toolID string, p models.Payload) *models.ResultRecord {
	return f(ctx, toolID, p)
}

var urlTool = models.ToolDescriptor{ID: "word-count", Category: models.CategoryContent, InputKind: models.InputURL}

func countingExec(active, peak *atomic.Int32) execFunc {
	return func(_ context.Context, _ string, p models.Payload) *models.ResultRecord {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		if strings.Contains(p.Input, "bad") {
			return models.NewErrorResult(models.ErrCodeFetchFailure, models.MsgFetchFailed)
		}
		return models.NewResult().Set("word_count", len(p.Input)).Messagef("ok")
	}
}

func TestRunBoundsConcurrencyAndTagsURLs(t *testing.T) {
	var active, peak atomic.Int32
	r := NewRunner(countingExec(&active, &peak), 3, nil)

	urls := []string{"https://a.test/1", "https://b.test/bad", "https://c.test/3", "https://d.test/4", "https://e.test/5", "https://f.test/6"}
	var calls atomic.Int32
	s := r.Run(context.Background(), urlTool, urls, nil, func(int, *models.BulkItem) { calls.Add(1) })

	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
	if s.Completed != 5 || s.Failed != 1 || s.Skipped != 0 {
		t.Errorf("summary = %+v", s)
	}
	for i, item := range s.Items {
		if item == nil || item.URL != urls[i] {
			t.Errorf("item %d = %+v", i, item)
		}
	}
	if calls.Load() != int32(len(urls)) {
		t.Errorf("onResult called %d times", calls.Load())
	}
	if got := s.Status(false); got != models.JobPartial {
		t.Errorf("Status = %s", got)
	}
}

func TestRunCancelSkipsPendingTasks(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	exec := execFunc(func(ctx context.Context, _ string, p models.Payload) *models.ResultRecord {
		once.Do(func() { close(started) })
		<-release
		if ctx.Err() != nil {
			return models.NewErrorResult(models.ErrCodeAnalysis, "in-flight task was interrupted")
		}
		return models.NewResult()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
		close(release)
	}()

	urls := []string{"https://a.test/", "https://b.test/", "https://c.test/", "https://d.test/"}
	s := NewRunner(exec, 1, nil).Run(ctx, urlTool, urls, nil, nil)

	if s.Completed != 1 || s.Failed != 0 || s.Skipped != 3 {
		t.Errorf("summary = %+v", s)
	}
	if s.Items[0] == nil || s.Items[1] != nil {
		t.Errorf("items = %+v", s.Items)
	}
	if got := s.Status(true); got != models.JobCancelled {
		t.Errorf("Status = %s", got)
	}
}

func TestNewRunnerClampsWorkers(t *testing.T) {
	if r := NewRunner(nil, 0, nil); r.workers != MinWorkers {
		t.Errorf("workers = %d", r.workers)
	}
	if r := NewRunner(nil, 50, nil); r.workers != MaxWorkers {
		t.Errorf("workers = %d", r.workers)
	}
}

func TestPayloadFor(t *testing.T) {
	compound := models.ToolDescriptor{ID: "keyword-density", InputKind: models.InputCompound, Fields: []models.FieldSpec{{Name: "url"}, {Name: "keyword"}}}
	shared := map[string]string{"keyword": "seo"}

	p := PayloadFor(compound, "https://a.test/", shared)
	if p.Fields["url"] != "https://a.test/" || p.Fields["keyword"] != "seo" {
		t.Errorf("fields = %v", p.Fields)
	}
	if _, ok := shared["url"]; ok {
		t.Error("shared fields were mutated")
	}
	if p := PayloadFor(urlTool, "https://a.test/", shared); p.Input != "https://a.test/" || p.Fields != nil {
		t.Errorf("payload = %+v", p)
	}
}

func TestHostPacerSpacesSameHost(t *testing.T) {
	p := NewHostPacer(20, time.Minute)
	defer p.Stop()

	start := time.Now()
	for range 3 {
		if err := p.Wait(context.Background(), "Example.com"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 requests at 20 rps took %v", elapsed)
	}
	if p.Hosts() != 1 {
		t.Errorf("Hosts = %d, want 1", p.Hosts())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx, "example.com"); err == nil {
		t.Error("Wait ignored a cancelled context")
	}
}

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("name, URL \nhome,https://a.test/\nshort\n"))
	if err != nil {
		t.Fatal(err)
	}
	urls := tbl.URLs()
	if len(urls) != 2 || urls[0] != "https://a.test/" || urls[1] != "" {
		t.Errorf("URLs = %q", urls)
	}

	for _, in := range []string{"", "name,link\nx,y\n"} {
		_, err := ReadCSV(strings.NewReader(in))
		var te *models.ToolError
		if !errors.As(err, &te) || te.Code != models.ErrCodeInvalidInput {
			t.Errorf("ReadCSV(%q) err = %v", in, err)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("url,note\nhttps://a.test/,first\nhttps://b.test/,second\nhttps://c.test/,third\n"))
	if err != nil {
		t.Fatal(err)
	}
	items := []*models.BulkItem{
		{URL: "https://a.test/", Result: models.NewResult().Set("word_count", 12).Set("tags", []string{"x"}).Messagef("The page contains 12 words.")},
		{URL: "https://b.test/", Result: models.NewErrorResult(models.ErrCodeFetchFailure, models.MsgFetchFailed)},
		nil,
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl, items); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"url", "note", "word_count", "tags", "status", "message", "error"},
		{"https://a.test/", "first", "12", `["x"]`, "ok", "The page contains 12 words.", ""},
		{"https://b.test/", "second", "", "", "error", "", "FETCH_FAILURE: Could not fetch page content."},
		{"https://c.test/", "third", "", "", "skipped", "", ""},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %q", rows)
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %q, want %q", i, rows[i], want[i])
		}
	}
}

func TestWriteCSVRenamesClashingColumns(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("url,Title,result.length\nhttps://a.test/,mine,7\n"))
	if err != nil {
		t.Fatal(err)
	}
	rec := models.NewResult().
		Set("title", "Hello").
		Set("length", 5).
		Set("status", "Too Short").
		Messagef("Title is too short.")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl, []*models.BulkItem{{URL: "https://a.test/", Result: rec}}); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"url", "Title", "result.length", "result.title", "length", "result.status", "status", "message", "error"},
		{"https://a.test/", "mine", "7", "Hello", "5", "Too Short", "ok", "Title is too short.", ""},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %q", rows)
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %q, want %q", i, rows[i], want[i])
		}
	}
	seen := map[string]bool{}
	for _, h := range rows[0] {
		if seen[h] {
			t.Errorf("column %q appears twice", h)
		}
		seen[h] = true
	}
}

func TestFieldColumnNamesAddsCounter(t *testing.T) {
	got := fieldColumnNames([]string{"url", "result.status"}, []string{"status", "word_count"})
	want := []string{"result.status_2", "word_count"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("names = %q, want %q", got, want)
	}
}

func TestServiceRunsJob(t *testing.T) {
	var active, peak atomic.Int32
	store := NewJobStore(time.Hour)
	defer store.Stop()
	svc := &Service{Runner: NewRunner(countingExec(&active, &peak), 2, nil), Store: store}

	job := svc.Start(urlTool, []string{"https://a.test/", "https://b.test/bad"}, nil, "")
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	got, ok := store.Get(job.ID)
	if !ok {
		t.Fatal("job not stored")
	}
	snap := got.Snapshot()
	if snap.Status != models.JobPartial || snap.Completed != 1 || snap.Failed != 1 || len(snap.Items) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
}
