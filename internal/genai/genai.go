// Package genai is the model capability boundary. It owns everything
// provider-shaped: composing genkit requests, streaming, retries with
// backoff, proactive rate limiting, and classifying provider errors into
// the chat package's error kinds. Callers upstream branch with errors.Is
// and never re-retry.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/vistaar-ai/vistaar/internal/chat"
	"github.com/vistaar-ai/vistaar/internal/log"
)

const (
	defaultMaxTurns     = 5
	defaultMaxRetries   = 3
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
)

// RetryConfig tunes backoff for transient provider failures.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns sensible defaults for model API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
	}
}

// Config holds the client's dependencies and tuning.
type Config struct {
	Genkit *genkit.Genkit
	// Model is the advisory model name, e.g. "googleai/gemini-2.5-flash".
	Model string
	// SystemPrompt overrides the default advisor persona when non-empty.
	SystemPrompt string
	// Tools are the registered tool refs offered on every turn.
	Tools []ai.ToolRef
	// MaxTurns bounds the tool-call loop. Defaults to 5.
	MaxTurns int
	// RateLimiter smooths request bursts across all sessions. Nil
	// installs a 10 req/s limiter with burst 30.
	RateLimiter *rate.Limiter
	Retry       RetryConfig
	Logger      log.Logger
}

// Client implements chat.Generator on top of genkit.
type Client struct {
	g        *genkit.Genkit
	model    string
	system   string
	tools    []ai.ToolRef
	maxTurns int
	limiter  *rate.Limiter
	retry    RetryConfig
	logger   log.Logger
}

// New creates a Client from cfg, applying defaults for zero values.
func New(cfg Config) (*Client, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = advisorSystemPrompt
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = rate.NewLimiter(10, 30)
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Client{
		g:        cfg.Genkit,
		model:    cfg.Model,
		system:   cfg.SystemPrompt,
		tools:    cfg.Tools,
		maxTurns: cfg.MaxTurns,
		limiter:  cfg.RateLimiter,
		retry:    cfg.Retry,
		logger:   cfg.Logger,
	}, nil
}

// Stream runs one tool-enabled turn, forwarding text deltas to onDelta.
//
// Transient failures are retried with exponential backoff, but only while
// nothing has been streamed yet: a partially delivered answer cannot be
// replayed. Errors returned are final and classified.
func (c *Client) Stream(ctx context.Context, req chat.GenerateRequest, onDelta chat.StreamCallback) (*chat.GenerateResult, error) {
	messages := deepCopyMessages(req.History)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(buildUserText(req))))

	var (
		streamed bool
		sinkErr  error
	)
	opts := []ai.GenerateOption{
		ai.WithModelName(c.model),
		ai.WithSystem(c.system),
		ai.WithMessages(messages...),
		ai.WithMaxTurns(c.maxTurns),
	}
	if len(c.tools) > 0 {
		opts = append(opts, ai.WithTools(c.tools...))
	}
	if onDelta != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if chunk == nil {
				return nil
			}
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				streamed = true
				if err := onDelta(ctx, part.Text); err != nil {
					sinkErr = err
					return err
				}
			}
			return nil
		}))
	}

	var lastErr error
	delay := c.retry.InitialDelay
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := genkit.Generate(ctx, c.g, opts...)
		if err == nil {
			c.logger.Debug("turn generated",
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			userMsg := ai.NewUserMessage(ai.NewTextPart(req.Query))
			return &chat.GenerateResult{
				Text:        resp.Text(),
				NewMessages: turnMessages(userMsg, messages, resp),
			}, nil
		}
		if sinkErr != nil {
			// The caller's stream broke; this is not a provider failure.
			return nil, sinkErr
		}
		lastErr = err

		if !retryable(err) || streamed || attempt == c.retry.MaxRetries {
			break
		}
		c.logger.Debug("retrying model call",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxDelay)
		}
	}

	return nil, classify(lastErr)
}

// retryable reports whether err is a transient failure worth another
// attempt. Provider SDKs expose these only as text, so matching on the
// message is the pragmatic choice; classification into error kinds still
// happens exactly once, in classify.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if isToolValidation(err) {
		return false
	}
	return containsAny(err.Error(),
		"rate limit", "quota", "429", "resource exhausted",
		"500", "502", "503", "504", "unavailable", "overloaded",
		"connection reset", "timeout", "temporary")
}

// classify maps a final provider error onto the chat error kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case isToolValidation(err):
		return fmt.Errorf("%w: %w", chat.ErrToolValidation, err)
	case isTransport(err):
		return fmt.Errorf("%w: %w", chat.ErrTransport, err)
	default:
		return fmt.Errorf("%w: %w", chat.ErrModelUnavailable, err)
	}
}

func isToolValidation(err error) bool {
	return containsAny(err.Error(),
		"tool call validation failed",
		"tool input validation",
		"invalid tool input",
		"failed to validate tool")
}

func isTransport(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return containsAny(err.Error(),
		"timeout", "deadline exceeded", "connection refused", "connection reset",
		"no such host", "broken pipe", "EOF")
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
