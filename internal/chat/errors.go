package chat

import "errors"

// Turn failure classes. The generation capability classifies provider
// errors into these before they reach the orchestrator, so callers only
// ever branch with errors.Is and never inspect error strings.
var (
	// ErrModeration means the moderation classifier itself failed. The
	// turn does not proceed; there is no fail-open path.
	ErrModeration = errors.New("moderation failed")

	// ErrToolValidation means the model emitted a tool invocation the
	// tool layer rejected after retries. Recoverable: the turn degrades
	// to a canned general-knowledge answer instead of aborting.
	ErrToolValidation = errors.New("tool invocation validation failed")

	// ErrModelUnavailable means the provider refused or exhausted the
	// request (quota, overload, persistent 5xx).
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrTransport means the request could not complete over the wire
	// (timeout, connection failure).
	ErrTransport = errors.New("transport failure")
)

// UserMessage maps a turn error to a short message safe to show the
// farmer. Internal detail stays in logs.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "The request took too long. Please try again."
	case errors.Is(err, ErrModelUnavailable):
		return "The assistant is temporarily unavailable. Please try again in a moment."
	case errors.Is(err, ErrModeration):
		return "We could not process your question right now. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
