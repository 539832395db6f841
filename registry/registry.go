// Package registry maps tool ids to analyzers. A Registry is built once at
// startup and is read-only afterwards, so it is safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/use-agent/pagelens/analyzer"
	"github.com/use-agent/pagelens/models"
)

// ErrNotFound is returned by Resolve for unknown tool ids.
var ErrNotFound = errors.New("tool not found")

// Builder collects registrations. It is not safe for concurrent use.
type Builder struct {
	tools []analyzer.Tool
	index map[string]int
	err   error
}

func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Register adds one tool. Empty or duplicate ids, an unknown category or
// input kind, and a nil analyzer are rejected.
func (b *Builder) Register(desc models.ToolDescriptor, a analyzer.Analyzer) error {
	switch {
	case strings.TrimSpace(desc.ID) == "":
		return errors.New("registry: empty tool id")
	case a == nil:
		return fmt.Errorf("registry: %s: nil analyzer", desc.ID)
	case !desc.Category.Valid():
		return fmt.Errorf("registry: %s: unknown category %q", desc.ID, desc.Category)
	case !desc.InputKind.Valid():
		return fmt.Errorf("registry: %s: unknown input kind %q", desc.ID, desc.InputKind)
	case desc.InputKind == models.InputCompound && len(desc.Fields) == 0:
		return fmt.Errorf("registry: %s: compound tool without fields", desc.ID)
	}
	if _, dup := b.index[desc.ID]; dup {
		return fmt.Errorf("registry: duplicate tool id %q", desc.ID)
	}
	b.index[desc.ID] = len(b.tools)
	b.tools = append(b.tools, analyzer.Tool{Descriptor: desc, Analyzer: a})
	return nil
}

// MustRegister is Register for static catalogs; the first error is kept and
// reported by Build.
func (b *Builder) MustRegister(t analyzer.Tool) *Builder {
	if b.err == nil {
		b.err = b.Register(t.Descriptor, t.Analyzer)
	}
	return b
}

// Build freezes the registrations.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	r := &Registry{
		tools: slices.Clone(b.tools),
		index: make(map[string]int, len(b.index)),
	}
	for id, i := range b.index {
		r.index[id] = i
	}
	return r, nil
}

// Registry is the immutable tool table.
type Registry struct {
	tools []analyzer.Tool
	index map[string]int
}

// Default builds the registry of every catalog tool.
func Default(deps analyzer.Deps) (*Registry, error) {
	b := NewBuilder()
	for _, t := range analyzer.Catalog(deps) {
		b.MustRegister(t)
	}
	return b.Build()
}

// Resolve returns the tool registered under id.
func (r *Registry) Resolve(id string) (analyzer.Tool, error) {
	i, ok := r.index[strings.TrimSpace(id)]
	if !ok {
		return analyzer.Tool{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return r.tools[i], nil
}

// List returns descriptors in registration order, limited to the given
// categories when any are passed.
func (r *Registry) List(categories ...models.Category) []models.ToolDescriptor {
	out := make([]models.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		if len(categories) == 0 || slices.Contains(categories, t.Descriptor.Category) {
			out = append(out, t.Descriptor)
		}
	}
	return out
}

// Categories returns the categories that have at least one tool, in the
// fixed display order.
func (r *Registry) Categories() []models.Category {
	var out []models.Category
	for _, c := range models.Categories {
		if len(r.List(c)) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Filter drops disabled tool ids from a listing. It never touches the
// registry itself.
func Filter(list []models.ToolDescriptor, disabled []string) []models.ToolDescriptor {
	if len(disabled) == 0 {
		return list
	}
	out := make([]models.ToolDescriptor, 0, len(list))
	for _, d := range list {
		if !slices.Contains(disabled, d.ID) {
			out = append(out, d)
		}
	}
	return out
}
