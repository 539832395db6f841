package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/registry"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "degraded" while any optional capability is switched off.
func Health(reg *registry.Registry, capabilities map[string]bool, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		for _, ok := range capabilities {
			if !ok {
				status = "degraded"
			}
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			Version:      Version,
			Tools:        reg.Len(),
			Capabilities: capabilities,
		})
	}
}
