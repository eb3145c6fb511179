package tools

import (
	"context"
	"encoding/json"
	"testing"
)

type stubTool struct {
	name string
	out  any
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object"}`)
}
func (s *stubTool) Execute(_ context.Context, _ map[string]any, _ Context) (any, error) {
	return s.out, nil
}

func TestRegistryGetIsIdempotent(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "echo"}
	r.Register(tool)

	first, ok := r.Get("echo")
	if !ok {
		t.Fatal("tool not found")
	}
	second, ok := r.Get("echo")
	if !ok {
		t.Fatal("tool not found on second lookup")
	}
	if first != second {
		t.Error("repeated Get returned different instances")
	}
	if first != Tool(tool) {
		t.Error("Get returned a different tool than registered")
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "a"})
	r.Register(&stubTool{name: "b"})
	replacement := &stubTool{name: "a", out: "new"}
	r.Register(replacement)

	got, _ := r.Get("a")
	if got != Tool(replacement) {
		t.Error("re-registration did not replace the tool")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names = %v, want [a b] (original position kept)", names)
	}
}

func TestRegistryDescriptionsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "search"})
	r.Register(&stubTool{name: "read"})

	descs := r.Descriptions()
	if len(descs) != 2 {
		t.Fatalf("got %d descriptions, want 2", len(descs))
	}
	if descs[0].Name != "search" || descs[1].Name != "read" {
		t.Errorf("description order = %s, %s; want search, read", descs[0].Name, descs[1].Name)
	}
}

func TestDecodeInputStrictRejectsUnknownKeys(t *testing.T) {
	var out struct {
		Query string `json:"query"`
	}
	err := decodeInput(map[string]any{"query": "x", "bogus": 1}, &out, true)
	if err == nil {
		t.Error("strict decode accepted unknown key")
	}

	if err := decodeInput(map[string]any{"query": "x", "bogus": 1}, &out, false); err != nil {
		t.Errorf("lenient decode failed: %v", err)
	}
	if out.Query != "x" {
		t.Errorf("query = %q, want x", out.Query)
	}
}

func TestDecodeInputWeakTyping(t *testing.T) {
	var out struct {
		MaxResults int `json:"maxResults"`
	}
	// JSON numbers arrive as float64.
	if err := decodeInput(map[string]any{"maxResults": float64(7)}, &out, true); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.MaxResults != 7 {
		t.Errorf("maxResults = %d, want 7", out.MaxResults)
	}
}
