package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Per-result token ceiling before a tool result is cut down in the
// synthesizer prompt. Large search or web_fetch outputs would otherwise
// crowd out the conversation.
const maxToolResultTokens = 2_000

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func getEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// countTokens estimates the token length of text. If the encoding cannot be
// loaded it falls back to a bytes/4 heuristic.
func countTokens(text string) int {
	enc := getEncoding()
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// trimToTokenBudget cuts text down to at most maxTokens, appending a marker
// when anything was removed.
func trimToTokenBudget(text string, maxTokens int) string {
	enc := getEncoding()
	if enc == nil {
		limit := maxTokens * 4
		if len(text) <= limit {
			return text
		}
		return text[:limit] + " [truncated]"
	}

	ids := enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return enc.Decode(ids[:maxTokens]) + " [truncated]"
}
