// Package suggest produces cached follow-up question suggestions for a
// session. Generation runs as a fire-and-forget job after a turn
// completes; reads come from the cache only, so a farmer opening the
// suggestion panel never waits on a model call.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/vistaar-ai/vistaar/internal/history"
	"github.com/vistaar-ai/vistaar/internal/log"
)

const (
	defaultTTL           = 30 * time.Minute
	defaultHistoryBudget = 30_000
	defaultExchanges     = 5
)

// Suggester generates follow-up questions from a rendered prompt.
type Suggester interface {
	Suggest(ctx context.Context, prompt string) ([]string, error)
}

// Cache is the subset of cache operations the job needs.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// HistorySource loads a session's transcript oldest first.
type HistorySource interface {
	History(ctx context.Context, sessionID string) ([]*ai.Message, error)
}

// Config holds the job's dependencies and tuning.
type Config struct {
	Suggester Suggester
	Cache     Cache
	Sessions  HistorySource
	Logger    log.Logger

	// TTL bounds how long generated suggestions stay valid. Defaults to
	// 30 minutes.
	TTL time.Duration
	// HistoryBudgetTokens caps the transcript considered; system and
	// tool messages are excluded entirely. Defaults to 30000.
	HistoryBudgetTokens int
	// Exchanges is how many recent completed exchanges feed the prompt.
	// Defaults to 5.
	Exchanges int
}

// Job generates and serves follow-up suggestions.
type Job struct {
	suggester Suggester
	cache     Cache
	sessions  HistorySource
	logger    log.Logger

	ttl       time.Duration
	budget    int
	exchanges int
}

// New creates a Job from cfg, applying defaults for zero values.
func New(cfg Config) (*Job, error) {
	if cfg.Suggester == nil {
		return nil, errors.New("suggester is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.HistoryBudgetTokens <= 0 {
		cfg.HistoryBudgetTokens = defaultHistoryBudget
	}
	if cfg.Exchanges <= 0 {
		cfg.Exchanges = defaultExchanges
	}
	return &Job{
		suggester: cfg.Suggester,
		cache:     cfg.Cache,
		sessions:  cfg.Sessions,
		logger:    cfg.Logger,
		ttl:       cfg.TTL,
		budget:    cfg.HistoryBudgetTokens,
		exchanges: cfg.Exchanges,
	}, nil
}

// cacheKey scopes suggestions per session and language so switching
// languages never serves stale text.
func cacheKey(sessionID, lang string) string {
	return fmt.Sprintf("%s_%s", sessionID, lang)
}

// Get returns the cached suggestions for the session and language, or
// ok=false when none are cached.
func (j *Job) Get(ctx context.Context, sessionID, lang string) ([]string, bool, error) {
	var suggestions []string
	ok, err := j.cache.Get(ctx, cacheKey(sessionID, lang), &suggestions)
	if err != nil {
		return nil, false, fmt.Errorf("read suggestions: %w", err)
	}
	return suggestions, ok, nil
}

// Generate produces suggestions for the session in lang and caches them.
// Idempotent within the TTL: if fresh suggestions are already cached the
// model is not called again and the cached set is returned. Sessions with
// no conversation yet yield nothing.
func (j *Job) Generate(ctx context.Context, sessionID, lang string) ([]string, error) {
	key := cacheKey(sessionID, lang)

	var cached []string
	if ok, err := j.cache.Get(ctx, key, &cached); err == nil && ok {
		j.logger.Debug("suggestions already cached",
			"session_id", sessionID, "lang", lang)
		return cached, nil
	}

	transcript, err := j.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	trimmed := history.Trim(transcript, j.budget, false, false)
	pairs := history.FormatPairs(trimmed, j.exchanges)
	if len(pairs) == 0 {
		j.logger.Debug("no conversation to suggest from", "session_id", sessionID)
		return nil, nil
	}

	prompt := j.buildPrompt(pairs, lang)
	suggestions, err := j.suggester.Suggest(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate suggestions: %w", err)
	}
	if len(suggestions) == 0 {
		return nil, nil
	}

	if err := j.cache.Set(ctx, key, suggestions, j.ttl); err != nil {
		// The suggestions are still good; the next request regenerates.
		j.logger.Warn("failed to cache suggestions",
			"session_id", sessionID, "error", err)
	}
	j.logger.Info("suggestions generated",
		"session_id", sessionID, "lang", lang, "count", len(suggestions))
	return suggestions, nil
}

func (j *Job) buildPrompt(pairs []string, lang string) string {
	var b strings.Builder
	b.WriteString("**Recent conversation:**\n\n")
	b.WriteString(strings.Join(pairs, "\n\n"))
	b.WriteString("\n\nGenerate 3 follow-up questions in ")
	b.WriteString(LanguageName(lang))
	b.WriteString(".")
	return b.String()
}

// LanguageName turns a BCP 47 code into its English display name, e.g.
// "mr" -> "Marathi". Unparseable codes pass through unchanged.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
