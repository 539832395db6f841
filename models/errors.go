package models

import "fmt"

// Error codes used in result records, API responses and internal error handling.
const (
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeFetchFailure          = "FETCH_FAILURE"
	ErrCodeFetchTimeout          = "FETCH_TIMEOUT"
	ErrCodeHTTPStatus            = "HTTP_STATUS"
	ErrCodeParseFailure          = "PARSE_FAILURE"
	ErrCodeAnalysis              = "ANALYSIS_ERROR"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"

	// API-only codes.
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// MsgFetchFailed is the user-facing message for any failed page fetch.
const MsgFetchFailed = "Could not fetch page content."

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ToolError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NewToolError creates a new ToolError.
func NewToolError(code, message string, err error) *ToolError {
	return &ToolError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ToolError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
