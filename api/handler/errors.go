package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagelens/models"
)

// respondError writes a failed RunResponse with the status for code.
func respondError(c *gin.Context, code, message string) {
	c.JSON(mapErrorToStatus(code), models.RunResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: code, Message: message},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeParseFailure:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeFetchFailure, models.ErrCodeHTTPStatus:
		return http.StatusBadGateway // 502
	case models.ErrCodeDependencyUnavailable:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeFetchTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
