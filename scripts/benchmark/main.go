package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "pagelens API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per tool and URL for averaging")
	tools  = flag.String("tools", "word-count,heading-structure,internal-links,open-graph-preview,page-load-time", "Comma-separated tool ids")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering a few site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
}

// --- Request / Response types (mirrors models package) ---

type runRequest struct {
	Input string `json:"input"`
}

type runResponse struct {
	Success bool `json:"success"`
	Result  *struct {
		Status  string         `json:"status"`
		Message string         `json:"message"`
		Fields  map[string]any `json:"fields"`
	} `json:"result"`
	ElapsedMs int64        `json:"elapsed_ms"`
	Error     *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run       int    `json:"run"`
	ElapsedMs int64  `json:"elapsed_ms"`
	RoundTrip int64  `json:"round_trip_ms"`
	Fields    int    `json:"fields"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type caseResult struct {
	Tool       string      `json:"tool"`
	URL        string      `json:"url"`
	Label      string      `json:"label"`
	Runs       []runResult `json:"runs"`
	AvgMs      float64     `json:"avg_elapsed_ms"`
	Successful int         `json:"successful"`
}

type benchmarkReport struct {
	Timestamp  string       `json:"timestamp"`
	APIURL     string       `json:"api_url"`
	RunsPerURL int          `json:"runs_per_url"`
	Results    []caseResult `json:"results"`
}

func main() {
	flag.Parse()
	toolIDs := strings.Split(*tools, ",")

	fmt.Println("=== pagelens Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Tools:     %s\n", strings.Join(toolIDs, ", "))
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure pagelens is running (e.g. go run ./cmd/pagelens)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	client := &http.Client{Timeout: 90 * time.Second}
	for _, toolID := range toolIDs {
		toolID = strings.TrimSpace(toolID)
		for _, t := range testURLs {
			fmt.Printf("Benchmarking %s on [%s] %s ...\n", toolID, t.Label, t.URL)
			cr := caseResult{Tool: toolID, URL: t.URL, Label: t.Label}

			for i := 1; i <= *runs; i++ {
				fmt.Printf("  Run %d/%d ... ", i, *runs)
				rr := benchmarkTool(client, toolID, t.URL, i)
				if rr.Success {
					fmt.Printf("OK  %dms  %d fields\n", rr.ElapsedMs, rr.Fields)
				} else {
					fmt.Printf("FAILED: %s\n", rr.Error)
				}
				cr.Runs = append(cr.Runs, rr)
			}

			cr.AvgMs, cr.Successful = average(cr.Runs)
			report.Results = append(report.Results, cr)
			fmt.Println()
		}
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkTool(client *http.Client, toolID, url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(runRequest{Input: url})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/tools/"+toolID+"/run", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr runResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	rr.RoundTrip = time.Since(start).Milliseconds()

	rr.Success = sr.Success
	rr.ElapsedMs = sr.ElapsedMs
	if sr.Result != nil {
		rr.Fields = len(sr.Result.Fields)
	}
	if sr.Error != nil {
		rr.Error = fmt.Sprintf("[%s] %s", sr.Error.Code, sr.Error.Message)
	}
	return rr
}

func average(runs []runResult) (float64, int) {
	var total float64
	var n int
	for _, r := range runs {
		if r.Success {
			total += float64(r.ElapsedMs)
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return total / float64(n), n
}

func printTable(results []caseResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Tool\tURL\tAvg Latency\tOK Runs\n")
	fmt.Fprintf(w, "────\t───\t───────────\t───────\n")

	for _, r := range results {
		if r.Successful == 0 {
			fmt.Fprintf(w, "%s\t%s\tFAILED\t0/%d\n", r.Tool, truncateURL(r.URL, 40), len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%dms\t%d/%d\n", r.Tool, truncateURL(r.URL, 40), int64(r.AvgMs), r.Successful, len(r.Runs))
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
