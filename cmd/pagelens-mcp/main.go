package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/pagelens/analyzer"
	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/registry"
)

// runResponse mirrors the pagelens run API response.
type runResponse struct {
	Success bool `json:"success"`
	Result  *struct {
		Tool    string          `json:"tool"`
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Fields  json.RawMessage `json:"fields"`
	} `json:"result"`
	CacheStatus string `json:"cache_status"`
	Error       *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// bulkResponse mirrors the pagelens bulk API response.
type bulkResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// bulkStatusResponse mirrors the pagelens bulk status API response.
type bulkStatusResponse struct {
	ID        string `json:"id"`
	Tool      string `json:"tool"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Items     []struct {
		URL    string          `json:"url"`
		Result json.RawMessage `json:"result"`
	} `json:"items"`
}

type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func main() {
	apiURL := os.Getenv("PAGELENS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	api := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("PAGELENS_API_KEY"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}

	// Descriptors only; runs go through the HTTP API.
	reg, err := registry.Default(analyzer.Deps{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "registry: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pagelens",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	for _, desc := range reg.List() {
		s.AddTool(toolFor(desc), handleRun(api, desc))
	}

	bulkTool := mcp.NewTool("bulk_analyze",
		mcp.WithDescription("Run one pagelens tool against many URLs and return each page's result. Compound tools receive each URL as their url field."),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool id, e.g. 'word-count' or 'meta-title-length'"),
		),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to analyze"),
		),
	)
	s.AddTool(bulkTool, handleBulk(api))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// mcpName turns a tool id into an MCP tool name.
func mcpName(id string) string {
	return strings.ReplaceAll(id, "-", "_")
}

// toolFor declares one string argument per input: "url" for URL tools,
// "input" for raw-text tools and one per field for compound tools.
func toolFor(desc models.ToolDescriptor) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("[%s] %s: %s", desc.Category, desc.DisplayName, desc.Description)),
	}
	switch desc.InputKind {
	case models.InputURL:
		opts = append(opts, mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL of the page")))
	case models.InputRawText:
		opts = append(opts, mcp.WithString("input", mcp.Required(), mcp.Description("Text to analyze")))
	case models.InputCompound:
		for _, f := range desc.Fields {
			props := []mcp.PropertyOption{mcp.Description(f.Description)}
			if f.Required {
				props = append(props, mcp.Required())
			}
			opts = append(opts, mcp.WithString(f.Name, props...))
		}
	}
	return mcp.NewTool(mcpName(desc.ID), opts...)
}

func handleRun(api *apiClient, desc models.ToolDescriptor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req models.RunRequest
		switch desc.InputKind {
		case models.InputURL:
			u, err := request.RequireString("url")
			if err != nil {
				return mcp.NewToolResultError("url is required"), nil
			}
			req.Input = u
		case models.InputRawText:
			in, err := request.RequireString("input")
			if err != nil {
				return mcp.NewToolResultError("input is required"), nil
			}
			req.Input = in
		case models.InputCompound:
			req.Fields = make(map[string]string, len(desc.Fields))
			for _, f := range desc.Fields {
				if v := request.GetString(f.Name, ""); v != "" {
					req.Fields[f.Name] = v
				}
			}
		}

		respBody, err := api.post(ctx, "/api/v1/tools/"+desc.ID+"/run", req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s request failed: %v", desc.ID, err)), nil
		}

		var runResp runResponse
		if err := json.Unmarshal(respBody, &runResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !runResp.Success {
			errMsg := desc.DisplayName + " failed"
			if runResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", runResp.Error.Code, runResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s: %s\n\n", desc.DisplayName, runResp.Result.Message)
		sb.WriteString(indent(runResp.Result.Fields))
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleBulk(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tool, err := request.RequireString("tool")
		if err != nil {
			return mcp.NewToolResultError("tool is required"), nil
		}
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		respBody, err := api.post(ctx, "/api/v1/bulk", models.BulkRequest{Tool: tool, URLs: urls})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bulk request failed: %v", err)), nil
		}
		var bulkResp bulkResponse
		if err := json.Unmarshal(respBody, &bulkResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse bulk response: %v", err)), nil
		}
		if bulkResp.ID == "" {
			errMsg := "bulk job creation failed"
			if bulkResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", bulkResp.Error.Code, bulkResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		resultBody, err := api.pollJob(ctx, "/api/v1/bulk/"+bulkResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling bulk job failed: %v", err)), nil
		}
		var status bulkStatusResponse
		if err := json.Unmarshal(resultBody, &status); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse bulk status: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Bulk %s (%s): %s, %d ok, %d failed, %d skipped of %d\n\n",
			status.ID, status.Tool, status.Status, status.Completed, status.Failed, status.Skipped, status.Total)
		for i, item := range status.Items {
			fmt.Fprintf(&sb, "--- [%d] %s ---\n%s\n\n", i+1, item.URL, indent(item.Result))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// post sends a JSON POST to the pagelens API and returns the response body.
func (a *apiClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *apiClient) do(req *http.Request) ([]byte, error) {
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// pollJob polls a job endpoint until its status is no longer "running" or
// ctx is cancelled.
func (a *apiClient) pollJob(ctx context.Context, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			body, err := a.do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != models.JobRunning {
				return body, nil
			}
		}
	}
}

// indent pretty-prints raw JSON, falling back to the raw bytes.
func indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
