package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagelens/cache"
	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/registry"
	"github.com/use-agent/pagelens/runner"
)

// ListTools returns a handler for GET /api/v1/tools.
//
// The optional category query parameter narrows the listing. Disabled
// tools are never listed.
func ListTools(reg *registry.Registry, disabled []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories := reg.Categories()
		if raw := strings.TrimSpace(c.Query("category")); raw != "" {
			cat := models.Category(raw)
			if !cat.Valid() {
				respondError(c, models.ErrCodeInvalidInput, fmt.Sprintf("Unknown category %q.", raw))
				return
			}
			categories = []models.Category{cat}
		}

		resp := models.ToolListResponse{Categories: []models.CategoryGroup{}}
		for _, cat := range categories {
			tools := registry.Filter(reg.List(cat), disabled)
			if len(tools) == 0 {
				continue
			}
			resp.Categories = append(resp.Categories, models.CategoryGroup{Category: cat, Tools: tools})
			resp.Total += len(tools)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetTool returns a handler for GET /api/v1/tools/:id.
func GetTool(reg *registry.Registry, disabled []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		desc, ok := lookup(reg, disabled, c.Param("id"))
		if !ok {
			respondError(c, models.ErrCodeNotFound, fmt.Sprintf("Unknown tool %q.", c.Param("id")))
			return
		}
		c.JSON(http.StatusOK, desc)
	}
}

// RunTool returns a handler for POST /api/v1/tools/:id/run.
//
// Flow:
//  1. Resolve the tool; disabled ids are reported as unknown.
//  2. Bind the request body.
//  3. Serve from cache when max_age allows it.
//  4. Execute and store Ok records in the cache.
func RunTool(run *runner.Runner, disabled []string, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		toolID := c.Param("id")

		if _, ok := lookup(run.Registry(), disabled, toolID); !ok {
			respondError(c, models.ErrCodeNotFound, fmt.Sprintf("Unknown tool %q.", toolID))
			return
		}

		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.ErrCodeInvalidInput, err.Error())
			return
		}

		var cacheKey string
		if cc != nil && req.MaxAge > 0 {
			cacheKey = cache.Key(toolID, req.Payload())
			if rec, hit := cc.Get(cacheKey, int(req.MaxAge)); hit {
				c.JSON(http.StatusOK, models.RunResponse{
					Success:     true,
					Result:      rec,
					CacheStatus: "hit",
					ElapsedMs:   time.Since(start).Milliseconds(),
				})
				return
			}
		}

		rec := run.Execute(c.Request.Context(), toolID, req.Payload())
		resp := models.RunResponse{
			Success:   rec.OK(),
			Result:    rec,
			ElapsedMs: time.Since(start).Milliseconds(),
		}
		if cacheKey != "" {
			cc.Set(cacheKey, rec)
			resp.CacheStatus = "miss"
		}

		if !rec.OK() {
			code := rec.ErrorCode()
			if mapErrorToStatus(code) >= http.StatusInternalServerError {
				slog.Warn("tool run failed", "tool", toolID, "error_code", code, "message", rec.Message)
			}
			resp.Error = &models.ErrorDetail{Code: code, Message: rec.Message}
			c.JSON(mapErrorToStatus(code), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// lookup resolves an enabled tool.
func lookup(reg *registry.Registry, disabled []string, id string) (models.ToolDescriptor, bool) {
	if slices.Contains(disabled, id) {
		return models.ToolDescriptor{}, false
	}
	tool, err := reg.Resolve(id)
	if err != nil {
		return models.ToolDescriptor{}, false
	}
	return tool.Descriptor, true
}
