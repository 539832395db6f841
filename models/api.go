package models

// RunRequest is the payload for POST /api/v1/tools/:id/run.
type RunRequest struct {
	// Input is the URL or raw text, depending on the tool's input kind.
	Input string `json:"input,omitempty"`

	// Fields holds named inputs for compound tools.
	Fields map[string]string `json:"fields,omitempty"`

	// MaxAge in milliseconds opts into the result cache. A cached result
	// younger than MaxAge is returned without running the tool. 0 disables.
	MaxAge int64 `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Payload converts the request into the runner's structured input.
func (r *RunRequest) Payload() Payload {
	return Payload{Input: r.Input, Fields: r.Fields}
}

// RunResponse is the response for POST /api/v1/tools/:id/run.
type RunResponse struct {
	Success bool          `json:"success"`
	Result  *ResultRecord `json:"result,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested.
	CacheStatus string `json:"cache_status,omitempty"`

	ElapsedMs int64        `json:"elapsed_ms"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// ToolListResponse is the response for GET /api/v1/tools.
type ToolListResponse struct {
	Categories []CategoryGroup `json:"categories"`
	Total      int             `json:"total"`
}

// CategoryGroup lists the tools of one category.
type CategoryGroup struct {
	Category Category         `json:"category"`
	Tools    []ToolDescriptor `json:"tools"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string          `json:"status"` // "healthy" or "degraded"
	Uptime       string          `json:"uptime"`
	Version      string          `json:"version"`
	Tools        int             `json:"tools"`
	Capabilities map[string]bool `json:"capabilities"`
}
