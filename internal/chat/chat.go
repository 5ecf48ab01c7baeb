// Package chat orchestrates one advisory turn: moderate the query, run a
// tool-enabled generation streaming the answer to the caller, and persist
// the turn's transcript. A turn has exactly three outcomes: a completed
// streamed answer, a degraded canned answer when tool validation fails,
// or a fatal error with no transcript mutation at all.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/vistaar-ai/vistaar/internal/history"
	"github.com/vistaar-ai/vistaar/internal/log"
	"github.com/vistaar-ai/vistaar/internal/moderation"
)

// FallbackText is the degraded answer substituted when the model's tool
// invocations cannot be validated. The trailing space is deliberate: the
// model's general-knowledge continuation may be appended later.
const FallbackText = "I encountered a technical issue while searching for precise terms, but I will try to answer based on my general knowledge. "

const (
	defaultHistoryBudget   = 60_000
	defaultPromptExchanges = 3
	defaultFlushInterval   = 100 * time.Millisecond
)

// Config holds the advisor's dependencies and tuning.
type Config struct {
	Generator Generator
	Gate      Moderator
	Sessions  SessionStore
	Logger    log.Logger

	// HistoryBudgetTokens caps the estimated size of the transcript sent
	// as model context. System and tool messages count against it.
	// Defaults to 60000.
	HistoryBudgetTokens int

	// PromptExchanges is how many recent completed exchanges are rendered
	// into the prompt's conversation window. Defaults to 3.
	PromptExchanges int

	// FlushInterval batches rapid streaming deltas into single callback
	// emits. Zero uses the 100ms default; negative disables batching and
	// forwards every delta as it arrives.
	FlushInterval time.Duration
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("chat config is nil")
	}
	if c.Generator == nil {
		return errors.New("generator is required")
	}
	if c.Gate == nil {
		return errors.New("moderation gate is required")
	}
	if c.Sessions == nil {
		return errors.New("session store is required")
	}
	return nil
}

// Turn is the outcome of a completed (possibly degraded) turn.
type Turn struct {
	// Text is the full answer delivered to the farmer.
	Text string
	// Degraded is true when tool validation failed and the canned
	// fallback answer was substituted.
	Degraded bool
	// Verdict is the moderation result folded into the prompt.
	Verdict moderation.Verdict
	// NewMessages are the transcript entries persisted for this turn.
	NewMessages []*ai.Message
}

// Advisor runs advisory turns against a single generator and store.
// Instances are safe for concurrent use across sessions; callers are
// expected to serialize turns within one session.
type Advisor struct {
	generator Generator
	gate      Moderator
	sessions  SessionStore
	logger    log.Logger

	historyBudget   int
	promptExchanges int
	flushInterval   time.Duration
}

// New creates an Advisor from cfg, applying defaults for zero values.
func New(cfg Config) (*Advisor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.HistoryBudgetTokens <= 0 {
		cfg.HistoryBudgetTokens = defaultHistoryBudget
	}
	if cfg.PromptExchanges <= 0 {
		cfg.PromptExchanges = defaultPromptExchanges
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &Advisor{
		generator:       cfg.Generator,
		gate:            cfg.Gate,
		sessions:        cfg.Sessions,
		logger:          cfg.Logger,
		historyBudget:   cfg.HistoryBudgetTokens,
		promptExchanges: cfg.PromptExchanges,
		flushInterval:   cfg.FlushInterval,
	}, nil
}

// StreamTurn executes one turn for sessionID, forwarding answer text to
// onDelta as it is generated. language is the display name of the answer
// language; empty follows the query.
//
// On success the turn's messages are appended to the transcript after the
// last delta is delivered. If the caller disconnects or ctx is canceled
// mid-stream, nothing is persisted: an answer the farmer never saw is not
// part of the conversation.
func (a *Advisor) StreamTurn(ctx context.Context, sessionID, query, language string, onDelta StreamCallback) (*Turn, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}

	transcript, err := a.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	prompt := a.buildPrompt(transcript, query)

	verdict, err := a.gate.Classify(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModeration, err)
	}
	a.logger.Debug("turn moderated",
		"session_id", sessionID,
		"category", verdict.Category)

	trimmed := history.Trim(transcript, a.historyBudget, true, true)
	if dropped := len(transcript) - len(trimmed); dropped > 0 {
		a.logger.Debug("history trimmed",
			"session_id", sessionID,
			"dropped", dropped,
			"kept", len(trimmed))
	}

	co := newCoalescer(ctx, a.flushInterval, onDelta)
	result, genErr := a.generator.Stream(ctx, GenerateRequest{
		Query:   query,
		Prompt:  prompt,
		History: trimmed,
		Context: TurnContext{Moderation: verdict.String(), Language: language},
	}, co.push)
	flushErr := co.finish()

	switch {
	case genErr == nil:
		if flushErr != nil {
			return nil, fmt.Errorf("forward answer: %w", flushErr)
		}
		msgs := result.NewMessages
		if len(msgs) == 0 {
			msgs = []*ai.Message{
				ai.NewUserMessage(ai.NewTextPart(query)),
				ai.NewModelMessage(ai.NewTextPart(result.Text)),
			}
		}
		if err := a.sessions.AppendMessages(ctx, sessionID, msgs); err != nil {
			return nil, fmt.Errorf("persist turn: %w", err)
		}
		return &Turn{Text: result.Text, Verdict: verdict, NewMessages: msgs}, nil

	case errors.Is(genErr, ErrToolValidation):
		a.logger.Warn("tool validation failed, answering from general knowledge",
			"session_id", sessionID,
			"error", genErr)
		if onDelta != nil {
			if err := onDelta(ctx, FallbackText); err != nil {
				return nil, fmt.Errorf("forward answer: %w", err)
			}
		}
		msgs := []*ai.Message{
			ai.NewUserMessage(ai.NewTextPart(query)),
			ai.NewModelMessage(ai.NewTextPart(FallbackText)),
		}
		if err := a.sessions.AppendMessages(ctx, sessionID, msgs); err != nil {
			return nil, fmt.Errorf("persist turn: %w", err)
		}
		return &Turn{Text: FallbackText, Degraded: true, Verdict: verdict, NewMessages: msgs}, nil

	default:
		a.logger.Error("turn failed",
			"session_id", sessionID,
			"error", genErr)
		return nil, genErr
	}
}

// Run executes a turn without streaming and returns the full answer.
func (a *Advisor) Run(ctx context.Context, sessionID, query, language string) (*Turn, error) {
	return a.StreamTurn(ctx, sessionID, query, language, nil)
}

// buildPrompt prepends a window of recent exchanges to the raw query so
// both moderation and generation see the conversational context.
func (a *Advisor) buildPrompt(transcript []*ai.Message, query string) string {
	pairs := history.FormatPairs(transcript, a.promptExchanges)
	if len(pairs) == 0 {
		return query
	}
	var b strings.Builder
	b.WriteString("**Conversation so far:**\n\n")
	b.WriteString(strings.Join(pairs, "\n\n"))
	b.WriteString("\n\n---\n\n")
	b.WriteString(query)
	return b.String()
}
