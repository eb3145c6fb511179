// Package llm defines the provider-neutral interface the agents use for
// language-model calls: one schema-constrained object generation (planning)
// and one streamed text generation (synthesis).
package llm

import (
	"context"
	"encoding/json"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation context.
type Message struct {
	Role    string
	Content string
}

// ObjectRequest asks the model for a single JSON object conforming to Schema.
type ObjectRequest struct {
	Model       string
	System      string
	Messages    []Message
	SchemaName  string
	Schema      json.RawMessage
	Temperature *float64
}

// TextRequest asks the model for free-form text.
type TextRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature *float64
}

// Provider is implemented per LLM backend. Both calls are hard dependencies
// of a request: errors propagate to the caller, there is no retry here.
type Provider interface {
	// Name identifies the backing provider (e.g. "openai", "ollama").
	Name() string

	// GenerateObject returns the raw JSON object produced under the request's
	// schema constraint.
	GenerateObject(ctx context.Context, req *ObjectRequest) (json.RawMessage, error)

	// StreamText streams a completion, invoking onDelta for every text
	// fragment in generation order, and returns the full concatenated text.
	StreamText(ctx context.Context, req *TextRequest, onDelta func(string)) (string, error)
}

// Config holds common provider configuration.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}
