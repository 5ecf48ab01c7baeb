// Package history provides conversation transcript trimming and formatting.
//
// Token costs are a deterministic, cheap approximation by content length,
// never a tokenizer call: trimming runs on every turn and only needs to keep
// the prompt inside the model's context window with margin.
package history

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
)

// EstimateTokens provides a rough token count. Rune count divided by 2 is a
// conservative estimate that works for both English (~4 chars/token) and
// Devanagari (~1.5 chars/token) text.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// estimateMessageTokens estimates the cost of a single message, including
// a rough charge for tool payloads.
func estimateMessageTokens(msg *ai.Message) int {
	total := 0
	for _, part := range msg.Content {
		total += EstimateTokens(part.Text)
		if part.ToolRequest != nil {
			total += EstimateTokens(fmt.Sprint(part.ToolRequest.Input)) + EstimateTokens(part.ToolRequest.Name)
		}
		if part.ToolResponse != nil {
			total += EstimateTokens(fmt.Sprint(part.ToolResponse.Output))
		}
	}
	return total
}

// IsToolMessage reports whether msg is a tool-call or tool-result entry.
func IsToolMessage(msg *ai.Message) bool {
	if msg.Role == ai.RoleTool {
		return true
	}
	for _, part := range msg.Content {
		if part.ToolRequest != nil || part.ToolResponse != nil {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of a message.
func Text(msg *ai.Message) string {
	var b strings.Builder
	for _, part := range msg.Content {
		b.WriteString(part.Text)
	}
	return b.String()
}

// Trim returns the longest suffix of msgs whose estimated cost fits within
// maxTokens, preserving message order.
//
// System messages and tool-call/tool-result messages are removed from the
// candidate set up front when their include flags are false; excluded
// messages never count against the budget.
//
// The budget is a soft target: if even the most recent message alone
// exceeds it, that message is still returned, so a non-empty input never
// trims to nothing.
func Trim(msgs []*ai.Message, maxTokens int, includeSystem, includeToolCalls bool) []*ai.Message {
	candidates := make([]*ai.Message, 0, len(msgs))
	for _, msg := range msgs {
		if !includeSystem && msg.Role == ai.RoleSystem {
			continue
		}
		if !includeToolCalls && IsToolMessage(msg) {
			continue
		}
		candidates = append(candidates, msg)
	}
	if len(candidates) == 0 {
		return candidates
	}

	remaining := maxTokens
	start := len(candidates)
	for i := len(candidates) - 1; i >= 0; i-- {
		cost := estimateMessageTokens(candidates[i])
		if cost > remaining && start < len(candidates) {
			break
		}
		start = i
		remaining -= cost
	}
	return candidates[start:]
}

// FormatPairs renders the last n completed user/model exchanges as
// human-readable lines for prompt context. Tool and system messages are
// ignored. A dangling user message with no reply yet is rendered on its own
// after the pairs rather than treated as an error.
func FormatPairs(msgs []*ai.Message, n int) []string {
	type exchange struct {
		user  string
		model string
		open  bool // no model reply yet
	}

	var exchanges []exchange
	for _, msg := range msgs {
		if IsToolMessage(msg) || msg.Role == ai.RoleSystem {
			continue
		}
		text := strings.TrimSpace(Text(msg))
		if text == "" {
			continue
		}
		switch msg.Role {
		case ai.RoleUser:
			exchanges = append(exchanges, exchange{user: text, open: true})
		case ai.RoleModel:
			if len(exchanges) > 0 && exchanges[len(exchanges)-1].open {
				exchanges[len(exchanges)-1].model = text
				exchanges[len(exchanges)-1].open = false
			} else {
				// A model message without a preceding user message still
				// forms a (one-sided) exchange so nothing is dropped.
				exchanges = append(exchanges, exchange{model: text})
			}
		}
	}

	// The limit applies to completed pairs; a trailing dangling message is
	// kept in addition so the current question is never dropped.
	var dangling exchange
	hasDangling := false
	if len(exchanges) > 0 && exchanges[len(exchanges)-1].open {
		dangling = exchanges[len(exchanges)-1]
		hasDangling = true
		exchanges = exchanges[:len(exchanges)-1]
	}
	if len(exchanges) > n {
		exchanges = exchanges[len(exchanges)-n:]
	}
	if hasDangling {
		exchanges = append(exchanges[:len(exchanges):len(exchanges)], dangling)
	}

	out := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		switch {
		case ex.open:
			out = append(out, fmt.Sprintf("**Farmer:** %s", ex.user))
		case ex.user == "":
			out = append(out, fmt.Sprintf("**Assistant:** %s", ex.model))
		default:
			out = append(out, fmt.Sprintf("**Farmer:** %s\n**Assistant:** %s", ex.user, ex.model))
		}
	}
	return out
}
