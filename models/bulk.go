package models

// BulkRequest is the payload for POST /api/v1/bulk.
type BulkRequest struct {
	// Tool is the registry id to run against every URL. Required.
	Tool string `json:"tool" binding:"required"`

	// URLs is the list of target pages. Required.
	URLs []string `json:"urls" binding:"required,min=1"`

	// Fields are extra named inputs shared by every run (e.g. keyword).
	Fields map[string]string `json:"fields,omitempty"`

	// WebhookURL receives a signed bulk.completed event when the job ends.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// BulkResponse is the immediate response for POST /api/v1/bulk.
type BulkResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BulkItem is one tool result tagged with its source URL.
type BulkItem struct {
	URL    string        `json:"url"`
	Result *ResultRecord `json:"result"`
}

// Bulk job statuses.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobPartial   = "partial"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// BulkStatusResponse is the response for GET /api/v1/bulk/:id.
type BulkStatusResponse struct {
	ID        string      `json:"id"`
	Tool      string      `json:"tool"`
	Status    string      `json:"status"`
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	CreatedAt int64       `json:"created_at"`
	Items     []*BulkItem `json:"items,omitempty"`
}
