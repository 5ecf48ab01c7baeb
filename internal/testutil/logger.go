package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output. Prefer
// log.NewNop() where the internal/log package is already imported; this
// exists for packages that take *slog.Logger directly.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
