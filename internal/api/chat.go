package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vistaar-ai/vistaar/internal/chat"
	"github.com/vistaar-ai/vistaar/internal/log"
	"github.com/vistaar-ai/vistaar/internal/suggest"
)

// SSE event types for chat streaming.
const (
	EventChunk = "chunk" // partial answer text
	EventDone  = "done"  // turn completed
	EventError = "error" // turn failed
)

// ChatRequest is the request body for both chat endpoints.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Language  string `json:"language,omitempty"`
}

// ChunkPayload is the SSE data payload for streamed text.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload closes a successful stream.
type DonePayload struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// ErrorPayload closes a failed stream.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type chatHandler struct {
	advisor     Advisor
	suggestions SuggestionJob
	logger      log.Logger
	defaultLang string
}

func (h *chatHandler) decode(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	if req.Language == "" {
		req.Language = h.defaultLang
	}
	return req, req.SessionID != "" && req.Query != ""
}

// chat handles the non-streaming endpoint.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		writeError(w, http.StatusBadRequest, "session_id and query are required")
		return
	}

	turn, err := h.advisor.StreamTurn(r.Context(), req.SessionID, req.Query, suggest.LanguageName(req.Language), nil)
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, statusFor(err), chat.UserMessage(err))
		return
	}

	h.scheduleSuggestions(req.SessionID, req.Language)
	writeJSON(w, http.StatusOK, DonePayload{
		Response:  turn.Text,
		SessionID: req.SessionID,
		Degraded:  turn.Degraded,
	})
}

// stream handles the SSE endpoint. Answer text is forwarded as chunk
// events while the model generates; the stream ends with exactly one
// done or error event.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "INVALID_REQUEST",
			Message: "session_id and query are required",
		})
		return
	}

	h.logger.Debug("stream started", "session_id", req.SessionID)

	onDelta := func(_ context.Context, text string) error {
		return writeEvent(w, flusher, EventChunk, ChunkPayload{Text: text})
	}

	turn, err := h.advisor.StreamTurn(r.Context(), req.SessionID, req.Query, suggest.LanguageName(req.Language), onDelta)
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Info("client disconnected", "session_id", req.SessionID)
			return
		}
		h.logger.Error("stream turn failed", "session_id", req.SessionID, "error", err)
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    codeFor(err),
			Message: chat.UserMessage(err),
		})
		return
	}

	_ = writeEvent(w, flusher, EventDone, DonePayload{
		Response:  turn.Text,
		SessionID: req.SessionID,
		Degraded:  turn.Degraded,
	})
	h.logger.Info("stream completed",
		"session_id", req.SessionID,
		"degraded", turn.Degraded)

	h.scheduleSuggestions(req.SessionID, req.Language)
}

// scheduleSuggestions refreshes the suggestion cache in the background
// once a turn lands. Detached from the request context so a client
// disconnect after the done event does not cancel it.
func (h *chatHandler) scheduleSuggestions(sessionID, lang string) {
	if h.suggestions == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), suggestionTimeout)
		defer cancel()
		if _, err := h.suggestions.Generate(ctx, sessionID, lang); err != nil {
			h.logger.Warn("background suggestion generation failed",
				"session_id", sessionID, "error", err)
		}
	}()
}

// codeFor maps turn errors to SSE error codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, chat.ErrModeration):
		return "MODERATION_FAILED"
	case errors.Is(err, chat.ErrModelUnavailable):
		return "MODEL_UNAVAILABLE"
	case errors.Is(err, chat.ErrTransport):
		return "UPSTREAM_TIMEOUT"
	default:
		return "STREAM_ERROR"
	}
}

// statusFor maps turn errors to HTTP statuses for the JSON endpoint.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrTransport):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeEvent writes one SSE event with a JSON payload.
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
