package genai

import (
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/vistaar-ai/vistaar/internal/chat"
)

// deepCopyMessages creates independent copies of Message and Part structs.
// Genkit's renderMessages mutates msg.Content in place, so concurrent
// turns sharing transcript messages would race without this.
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			if part == nil {
				continue
			}
			cp := *part
			parts[j] = &cp
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: msg.Metadata,
		}
	}
	return copied
}

// buildUserText renders the enriched prompt plus per-turn steering into
// the text of the turn's user message.
func buildUserText(req chat.GenerateRequest) string {
	var b strings.Builder
	b.WriteString(req.Prompt)
	if req.Context.Moderation != "" {
		b.WriteString("\n\n")
		b.WriteString(req.Context.Moderation)
	}
	if req.Context.Language != "" {
		b.WriteString("\n\nRespond in ")
		b.WriteString(req.Context.Language)
		b.WriteString(".")
	}
	return b.String()
}

// turnMessages assembles the transcript entries a completed turn
// produced: the raw user query, any tool-loop messages the model
// generated, and the final model answer.
//
// userMsg carries the raw query; steering context sent to the model is
// not transcript content. sent is what we handed to the model (history
// plus the enriched user message); the final request's message list
// extends it with the tool loop. Leading system messages injected by the
// prompt layer are likewise skipped.
func turnMessages(userMsg *ai.Message, sent []*ai.Message, resp *ai.ModelResponse) []*ai.Message {
	out := []*ai.Message{userMsg}

	if resp.Request != nil {
		loop := resp.Request.Messages
		for len(loop) > 0 && loop[0].Role == ai.RoleSystem {
			loop = loop[1:]
		}
		if len(loop) > len(sent) {
			out = append(out, loop[len(sent):]...)
		}
	}
	if resp.Message != nil {
		out = append(out, resp.Message)
	}
	return out
}
