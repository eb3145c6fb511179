// Package tools defines the Tool interface, the registry the planner draws
// from, and the built-in tool implementations.
package tools

import (
	"context"
	"encoding/json"
)

// Context carries per-request information into a tool execution.
type Context struct {
	SessionID string
	AgentHome string
}

// Tool is a named, schema-described capability the planner may invoke.
// Implementations validate their own input and return a descriptive error on
// bad input; the orchestrator does not pre-validate.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, input map[string]any, tc Context) (any, error)
}

// Description is the planner-facing rendering of one tool.
type Description struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Registry maps tool names to implementations. It is populated once at
// startup, before any adapter accepts traffic, and read-only afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name twice keeps the last tool and its
// original position.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns all registered tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Descriptions renders the catalog for the planner, in registration order so
// prompts stay deterministic.
func (r *Registry) Descriptions() []Description {
	out := make([]Description, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, Description{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}
