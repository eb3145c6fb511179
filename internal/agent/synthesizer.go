package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/history"
	"github.com/user/valet/pkg/llm"
)

// ToolResult is the outcome of one executed plan step, as presented to the
// synthesizer.
type ToolResult struct {
	Tool   string
	Result any
	Error  string
}

// Synthesizer turns tool results and conversation history into the final
// streamed reply.
type Synthesizer struct {
	provider llm.Provider
	settings settings
	logger   *slog.Logger
}

// NewSynthesizer builds a synthesizer from the config's synthesizer
// overrides.
func NewSynthesizer(provider llm.Provider, cfg *config.Config, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		settings: resolveSettings(cfg, cfg.Agents.Synthesizer, defaultSynthesizerSystemPrompt),
		logger:   logger.With("agent", "synthesizer"),
	}
}

// Run streams the reply, invoking onChunk for each text fragment, and
// returns the full text.
func (s *Synthesizer) Run(ctx context.Context, message string, hist []history.Turn, results []ToolResult, onChunk func(string)) (string, error) {
	messages := make([]llm.Message, 0, len(hist)+1)
	for _, turn := range hist {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("%sUser request: %s", renderToolResults(results), message),
	})

	text, err := s.provider.StreamText(ctx, &llm.TextRequest{
		Model:       s.settings.Model,
		System:      s.settings.SystemPrompt,
		Messages:    messages,
		Temperature: s.settings.Temperature,
	}, onChunk)
	if err != nil {
		return "", fmt.Errorf("synthesize response: %w", err)
	}
	return text, nil
}

// renderToolResults formats results as a bullet list, one line per step,
// trimming oversized results to the token budget. Returns "" when there are
// no results so the prompt carries only the user request.
func renderToolResults(results []ToolResult) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Tool results:\n")
	for _, r := range results {
		if r.Error != "" {
			sb.WriteString(fmt.Sprintf("- %s: ERROR - %s\n", r.Tool, r.Error))
			continue
		}
		encoded, err := json.Marshal(r.Result)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", r.Result))
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", r.Tool, trimToTokenBudget(string(encoded), maxToolResultTokens)))
	}
	sb.WriteString("\n")
	return sb.String()
}
