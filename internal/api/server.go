// Package api exposes the advisory service over HTTP: a streaming chat
// endpoint (SSE), session transcript CRUD, cached follow-up suggestions,
// and health probes.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vistaar-ai/vistaar/internal/cache"
	"github.com/vistaar-ai/vistaar/internal/chat"
	"github.com/vistaar-ai/vistaar/internal/log"
	"github.com/vistaar-ai/vistaar/internal/session"
)

// Advisor runs one advisory turn. Implemented by chat.Advisor.
type Advisor interface {
	StreamTurn(ctx context.Context, sessionID, query, language string, onDelta chat.StreamCallback) (*chat.Turn, error)
}

// SuggestionJob generates and serves follow-up suggestions. Implemented
// by suggest.Job.
type SuggestionJob interface {
	Get(ctx context.Context, sessionID, lang string) ([]string, bool, error)
	Generate(ctx context.Context, sessionID, lang string) ([]string, error)
}

// ServerConfig contains the server's dependencies.
type ServerConfig struct {
	Advisor     Advisor
	Sessions    *session.Store
	Suggestions SuggestionJob
	Cache       *cache.Service // optional, reported by /readyz
	Pool        *pgxpool.Pool  // optional, pinged by /readyz
	Logger      log.Logger

	// DefaultLanguage is the BCP 47 code used when a request does not
	// name one.
	DefaultLanguage string
}

// Server is the HTTP API server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Advisor == nil {
		return nil, errors.New("advisor is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "mr"
	}

	ch := &chatHandler{
		advisor:     cfg.Advisor,
		suggestions: cfg.Suggestions,
		logger:      cfg.Logger,
		defaultLang: cfg.DefaultLanguage,
	}
	sh := &sessionHandler{store: cfg.Sessions, logger: cfg.Logger}
	sg := &suggestionHandler{
		job:         cfg.Suggestions,
		logger:      cfg.Logger,
		defaultLang: cfg.DefaultLanguage,
	}
	hh := &healthHandler{cache: cfg.Cache, pool: cfg.Pool}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.chat)
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)

	mux.HandleFunc("POST /api/v1/sessions", sh.create)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", sh.messages)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.delete)

	if cfg.Suggestions != nil {
		mux.HandleFunc("GET /api/v1/sessions/{id}/suggestions", sg.get)
		mux.HandleFunc("POST /api/v1/sessions/{id}/suggestions", sg.generate)
	}

	mux.HandleFunc("GET /healthz", hh.health)
	mux.HandleFunc("GET /readyz", hh.ready)

	return &Server{mux: mux}, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler(logger log.Logger) http.Handler {
	return withRecovery(withRequestLog(s.mux, logger), logger)
}

// suggestionTimeout bounds the fire-and-forget generation kicked off
// after a completed turn.
const suggestionTimeout = 60 * time.Second
