package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagelens/analyzer"
	"github.com/use-agent/pagelens/bulk"
	"github.com/use-agent/pagelens/cache"
	"github.com/use-agent/pagelens/config"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/registry"
	"github.com/use-agent/pagelens/runner"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>one two three</p></body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		Bulk:      config.BulkConfig{MaxURLs: 3},
		Tools:     config.ToolsConfig{Disabled: []string{"domain-age"}},
	}
	if mutate != nil {
		mutate(cfg)
	}

	f := fetcher.New(fetcher.Options{Timeout: 2 * time.Second})
	reg, err := registry.Default(analyzer.Deps{Fetcher: f})
	if err != nil {
		t.Fatal(err)
	}
	run := runner.New(reg, f)
	store := bulk.NewJobStore(time.Hour)
	t.Cleanup(store.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return NewRouter(ctx, cfg, Deps{
		Runner:       run,
		Bulk:         &bulk.Service{Runner: bulk.NewRunner(run, 2, nil), Store: store},
		Cache:        cache.New(100, time.Minute),
		Capabilities: map[string]bool{analyzer.CapabilityWhois: false},
		StartTime:    time.Now(),
	})
}

func do(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func resultField(body map[string]any, key string) any {
	res, _ := body["result"].(map[string]any)
	fields, _ := res["fields"].(map[string]any)
	return fields[key]
}

func TestHealthIsOpenWhileToolsNeedKey(t *testing.T) {
	r := newTestRouter(t, func(c *config.Config) {
		c.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}}
	})

	w := do(r, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded with whois off", body["status"])
	}

	if w := do(r, http.MethodGet, "/api/v1/tools", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no key = %d, want 401", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/tools", "", "X-API-Key", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad key = %d, want 401", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/tools", "", "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("bearer key = %d, want 200", w.Code)
	}
}

func TestListTools(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		query string
		code  int
		total float64
	}{
		{"", http.StatusOK, 41},
		{"?category=Utility", http.StatusOK, 3},
		{"?category=Social", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		w := do(r, http.MethodGet, "/api/v1/tools"+tt.query, "")
		if w.Code != tt.code {
			t.Errorf("%q: code = %d, want %d", tt.query, w.Code, tt.code)
			continue
		}
		if tt.code == http.StatusOK {
			if total := decode(t, w)["total"]; total != tt.total {
				t.Errorf("%q: total = %v, want %v", tt.query, total, tt.total)
			}
		}
	}
}

func TestGetTool(t *testing.T) {
	r := newTestRouter(t, nil)

	w := do(r, http.MethodGet, "/api/v1/tools/serp-preview", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := decode(t, w)
	if body["id"] != "serp-preview" || body["input_kind"] != "compound" {
		t.Errorf("descriptor = %v", body)
	}

	for _, id := range []string{"domain-age", "nope"} {
		if w := do(r, http.MethodGet, "/api/v1/tools/"+id, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s: code = %d, want 404", id, w.Code)
		}
	}
}

func TestRunToolCaches(t *testing.T) {
	r := newTestRouter(t, nil)
	req := `{"input":"Hello World","max_age":60000}`

	first := decode(t, do(r, http.MethodPost, "/api/v1/tools/keyword-case-converter/run", req))
	if first["success"] != true || first["cache_status"] != "miss" {
		t.Fatalf("first = %v", first)
	}
	if got := resultField(first, "snake_case"); got != "hello_world" {
		t.Errorf("snake_case = %v", got)
	}

	second := decode(t, do(r, http.MethodPost, "/api/v1/tools/keyword-case-converter/run", req))
	if second["cache_status"] != "hit" {
		t.Errorf("second cache_status = %v", second["cache_status"])
	}

	uncached := decode(t, do(r, http.MethodPost, "/api/v1/tools/keyword-case-converter/run", `{"input":"Hello World"}`))
	if _, ok := uncached["cache_status"]; ok {
		t.Errorf("cache_status set without max_age: %v", uncached)
	}
}

func TestRunToolStatuses(t *testing.T) {
	site := newSite(t)
	r := newTestRouter(t, nil)

	tests := []struct {
		name string
		path string
		body string
		code int
		err  string
	}{
		{"ok", "/api/v1/tools/word-count/run", `{"input":"` + site.URL + `/"}`, http.StatusOK, ""},
		{"bad url", "/api/v1/tools/word-count/run", `{"input":"ftp://example.com"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad json", "/api/v1/tools/word-count/run", `{"input":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"http status", "/api/v1/tools/word-count/run", `{"input":"` + site.URL + `/missing"}`, http.StatusBadGateway, "HTTP_STATUS"},
		{"unknown", "/api/v1/tools/nope/run", `{"input":"x"}`, http.StatusNotFound, "NOT_FOUND"},
		{"disabled", "/api/v1/tools/domain-age/run", `{"input":"example.com"}`, http.StatusNotFound, "NOT_FOUND"},
		{"missing field", "/api/v1/tools/serp-preview/run", `{"fields":{"title":"t"}}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.code, w.Body.String())
			}
			body := decode(t, w)
			if got := errorCode(body); got != tt.err {
				t.Errorf("error code = %q, want %q", got, tt.err)
			}
			if tt.name == "ok" && resultField(body, "word_count") != float64(3) {
				t.Errorf("word_count = %v", resultField(body, "word_count"))
			}
		})
	}
}

func TestBulkJobLifecycle(t *testing.T) {
	site := newSite(t)
	r := newTestRouter(t, nil)

	req := `{"tool":"word-count","urls":["` + site.URL + `/","` + site.URL + `/missing"]}`
	w := do(r, http.MethodPost, "/api/v1/bulk", req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
	}
	id, _ := decode(t, w)["id"].(string)
	if id == "" {
		t.Fatal("no job id")
	}

	deadline := time.Now().Add(5 * time.Second)
	var status map[string]any
	for time.Now().Before(deadline) {
		status = decode(t, do(r, http.MethodGet, "/api/v1/bulk/"+id, ""))
		if status["status"] != "running" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status["status"] != "partial" || status["completed"] != float64(1) || status["failed"] != float64(1) {
		t.Errorf("status = %v", status)
	}

	if w := do(r, http.MethodGet, "/api/v1/bulk/missing-job", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown job = %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/api/v1/bulk/missing-job", ""); w.Code != http.StatusNotFound {
		t.Errorf("cancel unknown job = %d", w.Code)
	}
}

func TestBulkRejects(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"raw text tool", `{"tool":"email-obfuscator","urls":["https://a.test/"]}`, http.StatusBadRequest},
		{"too many", `{"tool":"word-count","urls":["https://a.test/1","https://a.test/2","https://a.test/3","https://a.test/4"]}`, http.StatusBadRequest},
		{"no urls", `{"tool":"word-count","urls":[]}`, http.StatusBadRequest},
		{"unknown tool", `{"tool":"nope","urls":["https://a.test/"]}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := do(r, http.MethodPost, "/api/v1/bulk", tt.body); w.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.name, w.Code, tt.code)
		}
	}
}

func TestBulkCSV(t *testing.T) {
	site := newSite(t)
	r := newTestRouter(t, nil)

	sheet := "URL,label\n" + site.URL + "/,home\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bulk/csv?tool=word-count", strings.NewReader(sheet))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	rows, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"URL", "label", "word_count", "status", "message", "error"}
	if len(rows) != 2 || strings.Join(rows[0], ",") != strings.Join(want, ",") {
		t.Fatalf("rows = %q", rows)
	}
	if rows[1][2] != "3" || rows[1][3] != "ok" {
		t.Errorf("row = %q", rows[1])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/bulk/csv?tool=word-count", strings.NewReader("name\nx\n"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing url column = %d, want 400", w.Code)
	}
}

func TestBulkCSVRejectsOversizedBody(t *testing.T) {
	r := newTestRouter(t, func(cfg *config.Config) { cfg.Bulk.MaxCSVBytes = 64 })

	sheet := "url,label\n" + strings.Repeat("https://a.test/,x\n", 20)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bulk/csv?tool=word-count", strings.NewReader(sheet))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400 (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "CSV exceeds 64 bytes.") {
		t.Errorf("body = %s", w.Body.String())
	}
}
