package api

import (
	"net/http"

	"github.com/vistaar-ai/vistaar/internal/log"
)

type suggestionHandler struct {
	job         SuggestionJob
	logger      log.Logger
	defaultLang string
}

// suggestionsBody is the response for both suggestion endpoints.
type suggestionsBody struct {
	Suggestions []string `json:"suggestions"`
	Cached      bool     `json:"cached"`
}

func (h *suggestionHandler) lang(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return h.defaultLang
}

// get serves cached suggestions only. An empty set with cached=false
// means nothing has been generated yet (or the cache entry expired).
func (h *suggestionHandler) get(w http.ResponseWriter, r *http.Request) {
	suggestions, ok, err := h.job.Get(r.Context(), r.PathValue("id"), h.lang(r))
	if err != nil {
		h.logger.Error("read suggestions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load suggestions")
		return
	}
	writeJSON(w, http.StatusOK, suggestionsBody{Suggestions: suggestions, Cached: ok})
}

// generate produces suggestions now, reusing a fresh cached set when one
// exists.
func (h *suggestionHandler) generate(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.job.Generate(r.Context(), r.PathValue("id"), h.lang(r))
	if err != nil {
		h.logger.Error("generate suggestions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not generate suggestions")
		return
	}
	writeJSON(w, http.StatusOK, suggestionsBody{Suggestions: suggestions, Cached: false})
}
