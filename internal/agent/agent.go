// Package agent holds the two LLM roles of a request: the planner decides
// which tools to call, the synthesizer turns tool results into the reply.
package agent

import (
	"fmt"

	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/tools"
)

const defaultPlannerSystemPrompt = `You are a planning agent. Your job is to analyze the user's request and determine if any tools need to be called to fulfill it.

If the request can be answered directly from your knowledge, set requiresTools to false and leave steps empty.

If tools are needed, create a plan with the specific tools to call and their inputs. Be precise with tool inputs.

Available tools will be provided in the conversation. Only use tools that are available.

Keep your reasoning concise but clear.`

const defaultSynthesizerSystemPrompt = `You are a helpful assistant. Your job is to answer the user's question using the provided tool results.

If tool results are provided, use them to formulate your response. Be concise and helpful.

If no tool results are provided, answer directly from your knowledge.

Do not mention the internal workings of tools or the planning process to the user.`

// settings are the per-agent knobs after applying config overrides.
type settings struct {
	Model        string
	SystemPrompt string
	Temperature  *float64
}

func resolveSettings(cfg *config.Config, override config.AgentOverride, defaultPrompt string) settings {
	s := settings{
		Model:        cfg.LLM.Model,
		SystemPrompt: defaultPrompt,
		Temperature:  override.Temperature,
	}
	if override.Model != "" {
		s.Model = override.Model
	}
	if override.SystemPrompt != "" {
		s.SystemPrompt = override.SystemPrompt
	}
	return s
}

// renderToolDescriptions formats the registry's tool descriptions for the
// planner prompt.
func renderToolDescriptions(descs []tools.Description) string {
	out := ""
	for i, d := range descs {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("- %s: %s\n  Parameters: %s", d.Name, d.Description, string(d.Parameters))
	}
	return out
}
