package chat

import (
	"context"

	"github.com/firebase/genkit/go/ai"

	"github.com/vistaar-ai/vistaar/internal/moderation"
)

// StreamCallback receives forwarded answer text. Returning an error stops
// the stream; a nil callback discards deltas.
type StreamCallback func(ctx context.Context, text string) error

// TurnContext carries per-turn steering folded into the model request.
type TurnContext struct {
	// Moderation is the rendered verdict line injected as prompt context.
	Moderation string
	// Language is the display name of the language the answer should be
	// written in, e.g. "Marathi". Empty means follow the query's language.
	Language string
}

// GenerateRequest is one tool-enabled generation turn.
type GenerateRequest struct {
	// Query is the farmer's raw question. It becomes the persisted user
	// transcript entry.
	Query string
	// Prompt is the enriched user prompt sent to the model: recent
	// conversation window plus the raw query.
	Prompt string
	// History is the trimmed prior transcript sent as model context.
	History []*ai.Message
	// Context steers the answer without becoming transcript content.
	Context TurnContext
}

// GenerateResult is the outcome of a completed generation turn.
type GenerateResult struct {
	// Text is the full answer text.
	Text string
	// NewMessages are the transcript entries this turn produced, in
	// order: the user message, any tool calls and results, and the final
	// model answer.
	NewMessages []*ai.Message
}

// Generator runs one tool-enabled model turn, invoking onDelta for each
// text delta as it arrives. Implementations own retries and rate limiting;
// errors they return are final and classified into the package's error
// kinds, so the orchestrator never re-retries.
type Generator interface {
	Stream(ctx context.Context, req GenerateRequest, onDelta StreamCallback) (*GenerateResult, error)
}

// Moderator classifies a prompt before generation.
type Moderator interface {
	Classify(ctx context.Context, text string) (moderation.Verdict, error)
}

// SessionStore is the transcript persistence the orchestrator needs.
type SessionStore interface {
	// History returns the session's transcript oldest first. An unknown
	// session yields an empty transcript, not an error.
	History(ctx context.Context, sessionID string) ([]*ai.Message, error)
	// AppendMessages atomically appends a turn's messages: either every
	// message is recorded or none are.
	AppendMessages(ctx context.Context, sessionID string, msgs []*ai.Message) error
}
