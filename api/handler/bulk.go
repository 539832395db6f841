package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagelens/bulk"
	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/registry"
)

// BulkOptions bounds what a bulk request may ask for.
type BulkOptions struct {
	Disabled []string
	MaxURLs  int

	// MaxBytes caps an uploaded CSV body. Zero means defaultMaxCSVBytes.
	MaxBytes int64
}

const defaultMaxCSVBytes = 10 << 20

func (o BulkOptions) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return defaultMaxCSVBytes
}

// bulkTool resolves a tool that can run per URL. Raw-text tools have no URL
// to vary, so they are rejected.
func bulkTool(reg *registry.Registry, opts BulkOptions, id string) (models.ToolDescriptor, *models.ErrorDetail) {
	desc, ok := lookup(reg, opts.Disabled, id)
	if !ok {
		return desc, &models.ErrorDetail{Code: models.ErrCodeNotFound, Message: fmt.Sprintf("Unknown tool %q.", id)}
	}
	if desc.InputKind == models.InputRawText {
		return desc, &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: fmt.Sprintf("%s does not take a URL.", desc.DisplayName)}
	}
	if desc.InputKind == models.InputCompound {
		if _, ok := desc.Field("url"); !ok {
			return desc, &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: fmt.Sprintf("%s does not take a URL.", desc.DisplayName)}
		}
	}
	return desc, nil
}

func tooMany(opts BulkOptions, n int) *models.ErrorDetail {
	if opts.MaxURLs > 0 && n > opts.MaxURLs {
		return &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: fmt.Sprintf("maximum %d URLs per bulk job", opts.MaxURLs)}
	}
	return nil
}

// PostBulk returns a handler for POST /api/v1/bulk. The job runs in the
// background; the response carries its id.
func PostBulk(svc *bulk.Service, reg *registry.Registry, opts BulkOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BulkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.ErrCodeInvalidInput, err.Error())
			return
		}

		desc, detail := bulkTool(reg, opts, req.Tool)
		if detail == nil {
			detail = tooMany(opts, len(req.URLs))
		}
		if detail != nil {
			respondError(c, detail.Code, detail.Message)
			return
		}

		job := svc.Start(desc, req.URLs, req.Fields, req.WebhookURL)
		c.JSON(http.StatusAccepted, models.BulkResponse{
			ID:     job.ID,
			Status: models.JobRunning,
			Total:  len(req.URLs),
		})
	}
}

// GetBulk returns a handler for GET /api/v1/bulk/:id.
func GetBulk(store *bulk.JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := store.Get(c.Param("id"))
		if !ok {
			respondError(c, models.ErrCodeNotFound, "bulk job not found")
			return
		}
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// CancelBulk returns a handler for DELETE /api/v1/bulk/:id. Tasks already
// running finish; the rest are skipped.
func CancelBulk(store *bulk.JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := store.Get(c.Param("id"))
		if !ok {
			respondError(c, models.ErrCodeNotFound, "bulk job not found")
			return
		}
		job.Cancel()
		c.JSON(http.StatusAccepted, job.Snapshot())
	}
}

// BulkCSV returns a handler for POST /api/v1/bulk/csv?tool=<id>.
//
// The sheet comes either as the multipart field "file" or as the raw
// request body. Every query parameter other than tool is passed to each
// run as a shared field. The run is synchronous and the response is the
// input sheet with result columns appended.
func BulkCSV(runner *bulk.Runner, reg *registry.Registry, opts BulkOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		desc, detail := bulkTool(reg, opts, c.Query("tool"))
		if detail != nil {
			respondError(c, detail.Code, detail.Message)
			return
		}

		limit := opts.maxBytes()
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		body, err := csvBody(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, models.ErrCodeInvalidInput, fmt.Sprintf("CSV exceeds %d bytes.", limit))
				return
			}
			respondError(c, models.ErrCodeInvalidInput, err.Error())
			return
		}
		table, err := bulk.ReadCSV(bytes.NewReader(body))
		if err != nil {
			var te *models.ToolError
			if errors.As(err, &te) {
				respondError(c, te.Code, te.Message)
				return
			}
			respondError(c, models.ErrCodeInvalidInput, err.Error())
			return
		}
		urls := table.URLs()
		if detail := tooMany(opts, len(urls)); detail != nil {
			respondError(c, detail.Code, detail.Message)
			return
		}

		shared := make(map[string]string)
		for k, v := range c.Request.URL.Query() {
			if k != "tool" && len(v) > 0 {
				shared[k] = v[0]
			}
		}

		summary := runner.Run(c.Request.Context(), desc, urls, shared, nil)

		var out bytes.Buffer
		if err := bulk.WriteCSV(&out, table, summary.Items); err != nil {
			respondError(c, models.ErrCodeInternal, err.Error())
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%d.csv"`, desc.ID, time.Now().Unix()))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", out.Bytes())
	}
}

// csvBody reads the uploaded file of a multipart request, or the raw body.
// The caller bounds the request body.
func csvBody(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}
