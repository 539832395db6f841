package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/use-agent/pagelens/analyzer"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/registry"
)

func newRunner(t *testing.T, capabilities ...string) *Runner {
	t.Helper()
	f := fetcher.New(fetcher.Options{Timeout: 2 * time.Second})
	reg, err := registry.Default(analyzer.Deps{Fetcher: f})
	if err != nil {
		t.Fatal(err)
	}
	return New(reg, f, capabilities...)
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>A page title that is long enough to pass</title></head>
<body><h1>Cat</h1><p>cat dog cat</p></body></html>`))
	})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteURLTool(t *testing.T) {
	srv := newSite(t)
	rec := newRunner(t).Execute(context.Background(), "meta-title-length", models.Payload{Input: srv.URL + "/"})

	if !rec.OK() {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Tool != "meta-title-length" {
		t.Errorf("Tool = %q", rec.Tool)
	}
	if v, _ := rec.Get("status"); v != "Good" {
		t.Errorf("status field = %v", v)
	}
}

func TestExecuteErrors(t *testing.T) {
	srv := newSite(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	r := newRunner(t)
	tests := []struct {
		name    string
		tool    string
		payload models.Payload
		code    string
		message string
	}{
		{"unknown tool", "nope", models.Payload{Input: srv.URL}, models.ErrCodeNotFound, `Unknown tool "nope".`},
		{"relative url", "word-count", models.Payload{Input: "/about"}, models.ErrCodeInvalidInput, ""},
		{"http status", "word-count", models.Payload{Input: srv.URL + "/missing"}, models.ErrCodeHTTPStatus, models.MsgFetchFailed},
		{"unreachable", "word-count", models.Payload{Input: deadURL}, models.ErrCodeFetchFailure, models.MsgFetchFailed},
		{"bad compound", "serp-preview", models.Payload{Input: "only a title"}, models.ErrCodeInvalidInput, ""},
		{"bad arity", "serp-preview", models.Payload{Input: "a|||b"}, models.ErrCodeInvalidInput, "Input must be 'TITLE|||DESCRIPTION|||URL'"},
		{"missing capability", "domain-age", models.Payload{Input: "example.com"}, models.ErrCodeDependencyUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := r.Execute(context.Background(), tt.tool, tt.payload)
			if rec.OK() {
				t.Fatalf("expected error record, got %+v", rec)
			}
			if rec.ErrorCode() != tt.code {
				t.Errorf("error_code = %s, want %s", rec.ErrorCode(), tt.code)
			}
			if tt.message != "" && rec.Message != tt.message {
				t.Errorf("message = %q, want %q", rec.Message, tt.message)
			}
		})
	}
}

func TestExecuteHTTPStatusCarriesCode(t *testing.T) {
	srv := newSite(t)
	rec := newRunner(t).Execute(context.Background(), "h1-extractor", models.Payload{Input: srv.URL + "/missing"})
	if v, _ := rec.Get("status_code"); v != http.StatusNotFound {
		t.Errorf("status_code = %v", v)
	}
}

func TestExecuteCompound(t *testing.T) {
	r := newRunner(t)
	want := map[string]string{"title": "Hello", "description": "A nice page", "url": "https://example.com"}

	legacy := r.Execute(context.Background(), "serp-preview", models.Payload{Input: "Hello|||A nice page|||https://example.com"})
	named := r.Execute(context.Background(), "serp-preview", models.Payload{Fields: want})
	for _, rec := range []*models.ResultRecord{legacy, named} {
		if !rec.OK() {
			t.Fatalf("record = %+v", rec)
		}
		for k, v := range want {
			if got, _ := rec.Get(k); got != v {
				t.Errorf("%s = %v, want %s", k, got, v)
			}
		}
	}
}

func TestExecuteKeywordDensityOverFetchedPage(t *testing.T) {
	srv := newSite(t)
	rec := newRunner(t).Execute(context.Background(), "keyword-density",
		models.Payload{Fields: map[string]string{"url": srv.URL + "/", "keyword": "Cat"}})
	if !rec.OK() {
		t.Fatalf("record = %+v", rec)
	}
	if v, _ := rec.Get("count"); v != 3 {
		t.Errorf("count = %v, want 3", v)
	}
}

func TestExecuteCompoundWithOnlyLeadingField(t *testing.T) {
	srv := newSite(t)
	rec := newRunner(t).Execute(context.Background(), "keyword-density", models.Payload{Input: srv.URL + "/"})
	if !rec.OK() {
		t.Fatalf("record = %+v", rec)
	}
	if _, ok := rec.Get("top_words"); !ok {
		t.Errorf("top_words missing from %v", rec.Keys())
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	b := registry.NewBuilder()
	b.MustRegister(analyzer.Tool{
		Descriptor: models.ToolDescriptor{ID: "boom", Category: models.CategoryUtility, InputKind: models.InputRawText},
		Analyzer: analyzer.Func(func(context.Context, analyzer.Input) (*models.ResultRecord, error) {
			panic("kaboom")
		}),
	})
	reg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	rec := New(reg, nil).Execute(context.Background(), "boom", models.Payload{Input: "x"})
	if rec.ErrorCode() != models.ErrCodeAnalysis || rec.Message != "Analysis failed: kaboom" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Tool != "boom" {
		t.Errorf("Tool = %q", rec.Tool)
	}
}

func TestExecuteRawTextNeverFailsOnEmpty(t *testing.T) {
	r := newRunner(t)
	for _, id := range []string{"css-minifier", "html-minifier", "js-minifier", "keyword-case-converter", "email-obfuscator", "text-to-keywords"} {
		if rec := r.Execute(context.Background(), id, models.Payload{}); !rec.OK() {
			t.Errorf("%s on empty input: %+v", id, rec)
		}
	}
}

func TestParseCompound(t *testing.T) {
	desc := models.ToolDescriptor{Fields: []models.FieldSpec{
		{Name: "url", Required: true},
		{Name: "keyword"},
	}}
	fields, err := ParseCompound(" https://example.com |||  seo ", desc)
	if err != nil {
		t.Fatal(err)
	}
	if fields["url"] != "https://example.com" || fields["keyword"] != "seo" {
		t.Errorf("fields = %v", fields)
	}
	if _, err := ParseCompound("a|||b|||c", desc); err == nil {
		t.Error("too many parts accepted")
	}
	if got := Guidance(desc); got != "Input must be 'URL|||KEYWORD'" {
		t.Errorf("Guidance = %q", got)
	}
}
