package api

import (
	"errors"
	"net/http"

	"github.com/firebase/genkit/go/ai"

	"github.com/vistaar-ai/vistaar/internal/history"
	"github.com/vistaar-ai/vistaar/internal/log"
	"github.com/vistaar-ai/vistaar/internal/session"
)

type sessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// create mints a fresh session identifier. The session row itself is
// created lazily on the first turn.
func (h *sessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": session.NewID()})
}

func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("get session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// messageView is the transcript entry shape returned to clients: role
// plus flattened text, with tool traffic omitted.
type messageView struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (h *sessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.store.History(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("load transcript failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load transcript")
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, msg := range msgs {
		if history.IsToolMessage(msg) || msg.Role == ai.RoleSystem {
			continue
		}
		views = append(views, messageView{Role: string(msg.Role), Text: history.Text(msg)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("delete session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
