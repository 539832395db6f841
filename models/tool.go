package models

import "strings"

// Category groups tools for listing. The set is closed.
type Category string

const (
	CategoryMetaTags    Category = "Meta/Tags"
	CategoryContent     Category = "Content"
	CategoryTechnical   Category = "Technical"
	CategoryLinks       Category = "Links"
	CategoryKeywords    Category = "Keywords"
	CategoryPerformance Category = "Performance"
	CategoryPreview     Category = "Preview"
	CategoryUtility     Category = "Utility"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryMetaTags,
	CategoryContent,
	CategoryTechnical,
	CategoryLinks,
	CategoryKeywords,
	CategoryPerformance,
	CategoryPreview,
	CategoryUtility,
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// InputKind declares what a tool expects as its payload.
type InputKind string

const (
	// InputURL tools take an absolute http(s) URL.
	InputURL InputKind = "url"
	// InputRawText tools take an arbitrary text payload.
	InputRawText InputKind = "raw_text"
	// InputCompound tools take several named fields.
	InputCompound InputKind = "compound"
)

// Valid reports whether k is a known input kind.
func (k InputKind) Valid() bool {
	switch k {
	case InputURL, InputRawText, InputCompound:
		return true
	}
	return false
}

// FieldSpec describes one named field of a compound input.
type FieldSpec struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// ToolDescriptor is the static metadata identifying one analyzer.
type ToolDescriptor struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	InputKind   InputKind `json:"input_kind"`

	// Fetch makes the runner retrieve the page before analysis. For
	// compound tools the "url" field is fetched.
	Fetch bool `json:"fetch"`

	// Fields lists the named inputs of a compound tool, in legacy
	// delimiter order.
	Fields []FieldSpec `json:"fields,omitempty"`

	// Requires names optional capabilities (e.g. "whois") resolved at startup.
	Requires []string `json:"requires,omitempty"`
}

// Field returns the spec for the named compound field.
func (d ToolDescriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Payload is the structured input to one tool run. Input carries the URL
// for URL tools and the text for raw-text tools; compound tools use Fields.
type Payload struct {
	Input  string            `json:"input,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Field returns a named field with surrounding whitespace removed.
func (p Payload) Field(name string) string {
	return strings.TrimSpace(p.Fields[name])
}
