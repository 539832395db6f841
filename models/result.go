package models

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Status is the outcome of one analysis.
type Status string

const (
	StatusOk    Status = "ok"
	StatusError Status = "error"
)

// Fields is the ordered result mapping. Keys keep insertion order in JSON.
type Fields = orderedmap.OrderedMap[string, any]

// NewFields returns an empty ordered mapping, usable for nested values.
func NewFields() *Fields {
	return orderedmap.New[string, any]()
}

// ResultRecord is the normalized output of one analysis. A record is built
// by the analyzer or runner and must not be changed after it is returned.
type ResultRecord struct {
	Tool    string  `json:"tool,omitempty"`
	Status  Status  `json:"status"`
	Message string  `json:"message"`
	Fields  *Fields `json:"fields"`
}

// NewResult starts an Ok record.
func NewResult() *ResultRecord {
	return &ResultRecord{Status: StatusOk, Fields: NewFields()}
}

// NewErrorResult builds an Error record whose only field is the error code.
// Callers may add further diagnostic fields with Set.
func NewErrorResult(code, message string) *ResultRecord {
	r := &ResultRecord{Status: StatusError, Message: message, Fields: NewFields()}
	r.Fields.Set("error_code", code)
	return r
}

// Set appends or replaces a field and returns the record for chaining.
func (r *ResultRecord) Set(key string, value any) *ResultRecord {
	r.Fields.Set(key, value)
	return r
}

// Get returns a field value.
func (r *ResultRecord) Get(key string) (any, bool) {
	if r.Fields == nil {
		return nil, false
	}
	return r.Fields.Get(key)
}

// Keys returns field keys in insertion order.
func (r *ResultRecord) Keys() []string {
	if r.Fields == nil {
		return nil
	}
	keys := make([]string, 0, r.Fields.Len())
	for pair := r.Fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Messagef sets the human-readable summary.
func (r *ResultRecord) Messagef(format string, args ...any) *ResultRecord {
	r.Message = fmt.Sprintf(format, args...)
	return r
}

// OK reports whether the record has Ok status.
func (r *ResultRecord) OK() bool {
	return r.Status == StatusOk
}

// ErrorCode returns the error_code diagnostic field, or "".
func (r *ResultRecord) ErrorCode() string {
	v, _ := r.Get("error_code")
	s, _ := v.(string)
	return s
}
