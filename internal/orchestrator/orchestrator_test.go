package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/history"
	"github.com/user/valet/internal/store"
	"github.com/user/valet/internal/tools"
	"github.com/user/valet/pkg/llm"
)

// fakeProvider returns a canned plan and streams canned chunks, capturing the
// requests it sees.
type fakeProvider struct {
	plan       string
	chunks     []string
	objectReqs []*llm.ObjectRequest
	textReqs   []*llm.TextRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GenerateObject(_ context.Context, req *llm.ObjectRequest) (json.RawMessage, error) {
	f.objectReqs = append(f.objectReqs, req)
	return json.RawMessage(f.plan), nil
}

func (f *fakeProvider) StreamText(_ context.Context, req *llm.TextRequest, onDelta func(string)) (string, error) {
	f.textReqs = append(f.textReqs, req)
	var sb strings.Builder
	for _, c := range f.chunks {
		sb.WriteString(c)
		if onDelta != nil {
			onDelta(c)
		}
	}
	return sb.String(), nil
}

// countingTool records executions and optionally fails.
type countingTool struct {
	name   string
	calls  []map[string]any
	failOn int
}

func (c *countingTool) Name() string                    { return c.name }
func (c *countingTool) Description() string             { return "test tool" }
func (c *countingTool) Parameters() json.RawMessage     { return json.RawMessage(`{"type":"object"}`) }
func (c *countingTool) Execute(_ context.Context, input map[string]any, _ tools.Context) (any, error) {
	c.calls = append(c.calls, input)
	if c.failOn > 0 && len(c.calls) == c.failOn {
		return nil, fmt.Errorf("boom")
	}
	return map[string]any{"call": len(c.calls)}, nil
}

func planJSON(requiresTools bool, steps ...[2]string) string {
	type step struct {
		Tool  string `json:"tool"`
		Input string `json:"input"`
	}
	out := struct {
		Reasoning     string `json:"reasoning"`
		RequiresTools bool   `json:"requiresTools"`
		Steps         []step `json:"steps"`
	}{Reasoning: "test plan", RequiresTools: requiresTools}
	for _, s := range steps {
		out.Steps = append(out.Steps, step{Tool: s[0], Input: s[1]})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, registry *tools.Registry) (*Orchestrator, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	orch := New(cfg, provider, registry, history.NewService(st), st, "fake", slog.Default())
	return orch, st
}

func collectStatuses(types *[]string) *Callbacks {
	return &Callbacks{OnStatus: func(s Status) { *types = append(*types, s.Type) }}
}

func TestNoToolsDirectSynthesis(t *testing.T) {
	provider := &fakeProvider{plan: planJSON(false), chunks: []string{"4"}}
	tool := &countingTool{name: "search"}
	registry := tools.NewRegistry()
	registry.Register(tool)

	orch, st := newTestOrchestrator(t, provider, registry)
	var statuses []string
	resp, err := orch.ProcessMessage(context.Background(), "what is 2+2?", "s1", collectStatuses(&statuses))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Text != "4" {
		t.Errorf("text = %q, want 4", resp.Text)
	}
	if resp.ToolCalls != nil {
		t.Errorf("toolCalls = %v, want none", resp.ToolCalls)
	}
	if len(tool.calls) != 0 {
		t.Errorf("tool executed %d times, want 0", len(tool.calls))
	}

	want := []string{StatusPlanning, StatusSynthesizing, StatusStreaming, StatusDone}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	for i, w := range want {
		if statuses[i] != w {
			t.Errorf("statuses[%d] = %q, want %q", i, statuses[i], w)
		}
	}

	calls, err := st.ToolCallsBySession("s1")
	if err != nil {
		t.Fatalf("audit rows: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("got %d audit rows, want 0", len(calls))
	}
}

func TestStepTruncationAtMaxToolCalls(t *testing.T) {
	steps := make([][2]string, 7)
	for i := range steps {
		steps[i] = [2]string{"echo", fmt.Sprintf(`{"n":%d}`, i)}
	}
	provider := &fakeProvider{plan: planJSON(true, steps...), chunks: []string{"done"}}
	tool := &countingTool{name: "echo"}
	registry := tools.NewRegistry()
	registry.Register(tool)

	orch, st := newTestOrchestrator(t, provider, registry)
	resp, err := orch.ProcessMessage(context.Background(), "run everything", "s1", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(tool.calls) != config.DefaultMaxToolCalls {
		t.Errorf("tool executed %d times, want %d", len(tool.calls), config.DefaultMaxToolCalls)
	}
	if len(resp.ToolCalls) != config.DefaultMaxToolCalls {
		t.Errorf("response has %d tool calls, want %d", len(resp.ToolCalls), config.DefaultMaxToolCalls)
	}

	calls, err := st.ToolCallsBySession("s1")
	if err != nil {
		t.Fatalf("audit rows: %v", err)
	}
	if len(calls) != config.DefaultMaxToolCalls {
		t.Errorf("got %d audit rows, want %d (no rows for truncated steps)", len(calls), config.DefaultMaxToolCalls)
	}
}

func TestFailingStepDoesNotStopLaterSteps(t *testing.T) {
	provider := &fakeProvider{
		plan:   planJSON(true, [2]string{"flaky", `{"a":1}`}, [2]string{"flaky", `{"a":2}`}),
		chunks: []string{"summary"},
	}
	tool := &countingTool{name: "flaky", failOn: 1}
	registry := tools.NewRegistry()
	registry.Register(tool)

	orch, st := newTestOrchestrator(t, provider, registry)
	resp, err := orch.ProcessMessage(context.Background(), "go", "s1", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Error != "boom" {
		t.Errorf("first call error = %q, want boom", resp.ToolCalls[0].Error)
	}
	if resp.ToolCalls[1].Error != "" || resp.ToolCalls[1].Result == nil {
		t.Errorf("second call = %+v, want success", resp.ToolCalls[1])
	}

	calls, err := st.ToolCallsBySession("s1")
	if err != nil {
		t.Fatalf("audit rows: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d audit rows, want 2", len(calls))
	}
	if calls[0].Error == nil || *calls[0].Error != "boom" {
		t.Errorf("audit[0].error = %v, want boom", calls[0].Error)
	}
	if calls[0].DurationMS == nil {
		t.Error("failed execution should still record a duration")
	}
	if calls[1].Output == nil {
		t.Error("successful execution missing output")
	}

	// The synthesizer sees both outcomes in plan order.
	if len(provider.textReqs) != 1 {
		t.Fatalf("got %d synth calls, want 1", len(provider.textReqs))
	}
	prompt := provider.textReqs[0].Messages[len(provider.textReqs[0].Messages)-1].Content
	errIdx := strings.Index(prompt, "ERROR - boom")
	okIdx := strings.Index(prompt, `"call":2`)
	if errIdx == -1 || okIdx == -1 || errIdx > okIdx {
		t.Errorf("tool results missing or out of order in prompt: %q", prompt)
	}
}

func TestUnregisteredToolSyntheticFailure(t *testing.T) {
	provider := &fakeProvider{
		plan:   planJSON(true, [2]string{"search", `{"query":"report"}`}),
		chunks: []string{"I could not search."},
	}
	registry := tools.NewRegistry() // empty: search is not registered

	orch, st := newTestOrchestrator(t, provider, registry)
	var statuses []string
	resp, err := orch.ProcessMessage(context.Background(), "find my report", "s1", collectStatuses(&statuses))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	wantErr := `Tool "search" not found`
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Error != wantErr {
		t.Errorf("toolCalls = %+v, want single %q failure", resp.ToolCalls, wantErr)
	}

	calls, err := st.ToolCallsBySession("s1")
	if err != nil {
		t.Fatalf("audit rows: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d audit rows, want 1", len(calls))
	}
	if calls[0].Error == nil || *calls[0].Error != wantErr {
		t.Errorf("audit error = %v, want %q", calls[0].Error, wantErr)
	}
	if calls[0].DurationMS != nil {
		t.Errorf("not-found audit row has duration %d, want NULL", *calls[0].DurationMS)
	}

	// An executing_tool status is still emitted before the lookup fails.
	var sawExecuting bool
	for _, s := range statuses {
		if s == StatusExecutingTool {
			sawExecuting = true
		}
	}
	if !sawExecuting {
		t.Error("no executing_tool status for unregistered tool")
	}

	prompt := provider.textReqs[0].Messages[len(provider.textReqs[0].Messages)-1].Content
	if !strings.Contains(prompt, wantErr) {
		t.Errorf("synthesizer prompt missing synthetic failure: %q", prompt)
	}
}

func TestChunkConcatenationEqualsFinalText(t *testing.T) {
	provider := &fakeProvider{plan: planJSON(false), chunks: []string{"Hel", "lo ", "there"}}
	orch, _ := newTestOrchestrator(t, provider, tools.NewRegistry())

	var received []string
	resp, err := orch.ProcessMessage(context.Background(), "hi", "s1", &Callbacks{
		OnChunk: func(c string) { received = append(received, c) },
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if joined := strings.Join(received, ""); joined != resp.Text {
		t.Errorf("chunks %q != final text %q", joined, resp.Text)
	}
	if resp.Text != "Hello there" {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestMessagePersistenceAndOrdering(t *testing.T) {
	provider := &fakeProvider{plan: planJSON(false), chunks: []string{"reply"}}
	orch, st := newTestOrchestrator(t, provider, tools.NewRegistry())

	if _, err := orch.ProcessMessage(context.Background(), "hello", "s1", nil); err != nil {
		t.Fatalf("process: %v", err)
	}

	msgs, err := st.MessagesBySession("s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[0].Content != "hello" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != store.RoleAssistant || msgs[1].Content != "reply" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
	if msgs[1].CreatedAt <= msgs[0].CreatedAt {
		t.Errorf("assistant at %d not after user at %d", msgs[1].CreatedAt, msgs[0].CreatedAt)
	}
}

func TestCurrentInputNotDuplicatedInHistory(t *testing.T) {
	provider := &fakeProvider{plan: planJSON(false), chunks: []string{"first"}}
	orch, _ := newTestOrchestrator(t, provider, tools.NewRegistry())

	if _, err := orch.ProcessMessage(context.Background(), "turn one", "s1", nil); err != nil {
		t.Fatalf("process: %v", err)
	}

	// First turn: no prior history, so exactly one planner message.
	if n := len(provider.objectReqs[0].Messages); n != 1 {
		t.Errorf("planner saw %d messages on first turn, want 1", n)
	}

	provider.chunks = []string{"second"}
	if _, err := orch.ProcessMessage(context.Background(), "turn two", "s1", nil); err != nil {
		t.Fatalf("process: %v", err)
	}

	// Second turn: history carries turn one (user + assistant) plus the new
	// request message; "turn two" appears only in the final message.
	msgs := provider.objectReqs[1].Messages
	if len(msgs) != 3 {
		t.Fatalf("planner saw %d messages on second turn, want 3", len(msgs))
	}
	for i, m := range msgs[:len(msgs)-1] {
		if strings.Contains(m.Content, "turn two") {
			t.Errorf("history message %d contains the current input", i)
		}
	}
}

func TestCreateSessionUnique(t *testing.T) {
	provider := &fakeProvider{plan: planJSON(false)}
	orch, _ := newTestOrchestrator(t, provider, tools.NewRegistry())

	a, b := orch.CreateSession(), orch.CreateSession()
	if a == "" || a == b {
		t.Errorf("session ids not unique: %q, %q", a, b)
	}
}
