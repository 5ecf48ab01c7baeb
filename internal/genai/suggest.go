package genai

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

const suggestSystemPrompt = `You generate follow-up questions a farmer is likely to ask next,
based on their recent conversation with an agricultural advisor.

Rules:
- Produce exactly 3 short questions.
- Write them from the farmer's point of view, in the requested language.
- Each question must build on the conversation: the next practical step,
  a closely related concern, or a seasonal follow-up.
- Never repeat a question already asked in the conversation.`

// suggestionList is the structured output schema for follow-up questions.
type suggestionList struct {
	Suggestions []string `json:"suggestions" jsonschema_description:"Three short follow-up questions in the requested language."`
}

// Suggest generates follow-up questions from a rendered conversation
// prompt. One structured call, rate limited like every other model call.
func (c *Client) Suggest(ctx context.Context, prompt string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	out, _, err := genkit.GenerateData[suggestionList](ctx, c.g,
		ai.WithModelName(c.model),
		ai.WithSystem(suggestSystemPrompt),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return nil, classify(err)
	}
	return out.Suggestions, nil
}
