// Package orchestrator runs the plan, execute, synthesize pipeline for one
// user message and persists its conversational and audit trail.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/user/valet/internal/agent"
	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/history"
	"github.com/user/valet/internal/store"
	"github.com/user/valet/internal/tools"
	"github.com/user/valet/pkg/llm"
)

// Status phases reported to adapters during processing.
const (
	StatusPlanning      = "planning"
	StatusExecutingTool = "executing_tool"
	StatusSynthesizing  = "synthesizing"
	StatusStreaming     = "streaming"
	StatusDone          = "done"
)

// Status is one progress update. Tool is set for executing_tool, Chunk for
// streaming.
type Status struct {
	Type  string `json:"type"`
	Tool  string `json:"tool,omitempty"`
	Chunk string `json:"chunk,omitempty"`
}

// Callbacks let adapters observe progress. Both are optional.
type Callbacks struct {
	OnStatus func(Status)
	OnChunk  func(string)
}

// ToolCallSummary is one executed step in a Response.
type ToolCallSummary struct {
	Tool   string `json:"tool"`
	Input  any    `json:"input"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Response is the outcome of processing one user message.
type Response struct {
	Text      string            `json:"text"`
	ToolCalls []ToolCallSummary `json:"toolCalls,omitempty"`
}

// Orchestrator wires the planner, the tool registry and the synthesizer
// around the persistent session state.
type Orchestrator struct {
	cfg         *config.Config
	planner     *agent.Planner
	synthesizer *agent.Synthesizer
	registry    *tools.Registry
	history     *history.Service
	store       *store.Store
	agentHome   string
	logger      *slog.Logger
}

// New builds an orchestrator.
func New(cfg *config.Config, provider llm.Provider, registry *tools.Registry, hist *history.Service, st *store.Store, agentHome string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		planner:     agent.NewPlanner(provider, cfg, logger),
		synthesizer: agent.NewSynthesizer(provider, cfg, logger),
		registry:    registry,
		history:     hist,
		store:       st,
		agentHome:   agentHome,
		logger:      logger,
	}
}

// CreateSession returns a fresh session identifier.
func (o *Orchestrator) CreateSession() string {
	return uuid.NewString()
}

// ProcessMessage runs the full pipeline for one user input. The history
// window is captured before the user message is appended, so neither LLM call
// sees the input twice. The assistant reply is persisted at least one
// millisecond after the user message so chronological ordering survives
// same-millisecond turns.
func (o *Orchestrator) ProcessMessage(ctx context.Context, input, sessionID string, cb *Callbacks) (*Response, error) {
	if cb == nil {
		cb = &Callbacks{}
	}
	emit := func(s Status) {
		if cb.OnStatus != nil {
			cb.OnStatus(s)
		}
	}
	onChunk := func(chunk string) {
		emit(Status{Type: StatusStreaming, Chunk: chunk})
		if cb.OnChunk != nil {
			cb.OnChunk(chunk)
		}
	}

	hist, err := o.history.Recent(sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	userMessageAt := time.Now().UnixMilli()
	if err := o.history.Append(sessionID, store.RoleUser, input, userMessageAt); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	emit(Status{Type: StatusPlanning})
	o.logger.Debug("running planner", "session_id", sessionID, "input_len", len(input))

	plan, err := o.planner.Run(ctx, input, hist, o.registry.Descriptions())
	if err != nil {
		return nil, err
	}
	o.logger.Debug("plan created",
		"requires_tools", plan.RequiresTools, "steps", len(plan.Steps), "reasoning", plan.Reasoning)

	var results []agent.ToolResult
	var executed []agent.PlanStep
	if plan.RequiresTools && len(plan.Steps) > 0 {
		executed, results = o.executePlan(ctx, plan, sessionID, emit)
	}

	emit(Status{Type: StatusSynthesizing})
	text, err := o.synthesizer.Run(ctx, input, hist, results, onChunk)
	if err != nil {
		return nil, err
	}

	emit(Status{Type: StatusDone})
	assistantMessageAt := max(time.Now().UnixMilli(), userMessageAt+1)
	if err := o.history.Append(sessionID, store.RoleAssistant, text, assistantMessageAt); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	resp := &Response{Text: text}
	if len(results) > 0 {
		resp.ToolCalls = make([]ToolCallSummary, len(results))
		for i, r := range results {
			resp.ToolCalls[i] = ToolCallSummary{
				Tool:   r.Tool,
				Input:  executed[i].Input,
				Result: r.Result,
				Error:  r.Error,
			}
		}
	}
	return resp, nil
}

// executePlan runs the plan's steps in order, at most MaxToolCalls of them,
// recording an audit row per attempted step. A failed or unknown tool does
// not abort the remaining steps. Returns the executed steps alongside their
// results so callers can pair input to outcome by position.
func (o *Orchestrator) executePlan(ctx context.Context, plan *agent.Plan, sessionID string, emit func(Status)) ([]agent.PlanStep, []agent.ToolResult) {
	steps := plan.Steps
	if limit := o.cfg.MaxToolCalls; len(steps) > limit {
		steps = steps[:limit]
	}

	toolCtx := tools.Context{SessionID: sessionID, AgentHome: o.agentHome}
	results := make([]agent.ToolResult, 0, len(steps))

	for _, step := range steps {
		emit(Status{Type: StatusExecutingTool, Tool: step.Tool})

		inputJSON := safeJSON(step.Input)
		tool, ok := o.registry.Get(step.Tool)
		if !ok {
			msg := fmt.Sprintf("Tool %q not found", step.Tool)
			o.logger.Warn("tool not found", "tool", step.Tool)
			results = append(results, agent.ToolResult{Tool: step.Tool, Error: msg})
			o.audit(&store.ToolCall{
				SessionID: sessionID,
				ToolName:  step.Tool,
				Input:     inputJSON,
				Error:     &msg,
				CreatedAt: time.Now().UnixMilli(),
			})
			continue
		}

		startedAt := time.Now()
		result, err := tool.Execute(ctx, step.Input, toolCtx)
		durationMS := time.Since(startedAt).Milliseconds()

		if err != nil {
			msg := err.Error()
			o.logger.Error("tool failed", "tool", step.Tool, "error", msg)
			results = append(results, agent.ToolResult{Tool: step.Tool, Error: msg})
			o.audit(&store.ToolCall{
				SessionID:  sessionID,
				ToolName:   step.Tool,
				Input:      inputJSON,
				Error:      &msg,
				DurationMS: &durationMS,
				CreatedAt:  time.Now().UnixMilli(),
			})
			continue
		}

		o.logger.Info("tool executed", "tool", step.Tool, "duration_ms", durationMS)
		results = append(results, agent.ToolResult{Tool: step.Tool, Result: result})
		output := safeJSON(result)
		o.audit(&store.ToolCall{
			SessionID:  sessionID,
			ToolName:   step.Tool,
			Input:      inputJSON,
			Output:     &output,
			DurationMS: &durationMS,
			CreatedAt:  time.Now().UnixMilli(),
		})
	}
	return steps, results
}

// audit persists one tool-call record. Audit failures are logged, never
// surfaced: losing one audit row must not fail the user's request.
func (o *Orchestrator) audit(tc *store.ToolCall) {
	if _, err := o.store.InsertToolCall(tc); err != nil {
		o.logger.Error("failed to record tool call", "tool", tc.ToolName, "error", err)
	}
}

func safeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
