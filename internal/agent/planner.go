package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/history"
	"github.com/user/valet/internal/tools"
	"github.com/user/valet/pkg/llm"
)

// planSchema constrains the planner's output object.
var planSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"reasoning": {"type": "string", "description": "Brief explanation of your planning decision"},
		"requiresTools": {"type": "boolean", "description": "Whether tools are needed to answer this request"},
		"steps": {
			"type": "array",
			"description": "List of tool calls to make, in order",
			"items": {
				"type": "object",
				"properties": {
					"tool": {"type": "string", "description": "Name of the tool to call"},
					"input": {"type": "string", "description": "Input parameters for the tool as a JSON string (e.g., '{\"query\":\"test\"}')"}
				},
				"required": ["tool", "input"],
				"additionalProperties": false
			}
		}
	},
	"required": ["reasoning", "requiresTools", "steps"],
	"additionalProperties": false
}`)

// PlanStep is one tool invocation the planner decided on, with its input
// already parsed from the model's JSON string.
type PlanStep struct {
	Tool  string
	Input map[string]any
}

// Plan is the planner's decision for a user message.
type Plan struct {
	Reasoning     string
	RequiresTools bool
	Steps         []PlanStep
}

// Planner asks the model which tools to call for a user message.
type Planner struct {
	provider llm.Provider
	settings settings
	logger   *slog.Logger
}

// NewPlanner builds a planner from the config's planner overrides.
func NewPlanner(provider llm.Provider, cfg *config.Config, logger *slog.Logger) *Planner {
	return &Planner{
		provider: provider,
		settings: resolveSettings(cfg, cfg.Agents.Planner, defaultPlannerSystemPrompt),
		logger:   logger.With("agent", "planner"),
	}
}

// planObject mirrors the schema for decoding the model's response.
type planObject struct {
	Reasoning     string `json:"reasoning"`
	RequiresTools bool   `json:"requiresTools"`
	Steps         []struct {
		Tool  string `json:"tool"`
		Input string `json:"input"`
	} `json:"steps"`
}

// Run produces a plan for the user message given the conversation history and
// the available tool descriptions. A step input that is not valid JSON is
// replaced with an empty object rather than failing the whole plan.
func (p *Planner) Run(ctx context.Context, message string, hist []history.Turn, descs []tools.Description) (*Plan, error) {
	messages := make([]llm.Message, 0, len(hist)+1)
	for _, turn := range hist {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Available tools:\n%s\n\nUser request: %s", renderToolDescriptions(descs), message),
	})

	raw, err := p.provider.GenerateObject(ctx, &llm.ObjectRequest{
		Model:       p.settings.Model,
		System:      p.settings.SystemPrompt,
		Messages:    messages,
		SchemaName:  "plan",
		Schema:      planSchema,
		Temperature: p.settings.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	var obj planObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	plan := &Plan{
		Reasoning:     obj.Reasoning,
		RequiresTools: obj.RequiresTools,
		Steps:         make([]PlanStep, 0, len(obj.Steps)),
	}
	for _, step := range obj.Steps {
		input := map[string]any{}
		if err := json.Unmarshal([]byte(step.Input), &input); err != nil {
			p.logger.Warn("failed to parse tool input JSON",
				"tool", step.Tool, "input", step.Input, "error", err)
			input = map[string]any{}
		}
		plan.Steps = append(plan.Steps, PlanStep{Tool: step.Tool, Input: input})
	}
	return plan, nil
}
