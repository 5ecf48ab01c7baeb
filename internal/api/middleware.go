package api

import (
	"net/http"
	"time"

	"github.com/vistaar-ai/vistaar/internal/log"
)

// loggingWriter wraps http.ResponseWriter to capture status and size.
// It implements Flusher for SSE streaming support and Unwrap for
// http.ResponseController.
type loggingWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (w *loggingWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingWriter) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher so chunk events reach the client through
// the middleware.
func (w *loggingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter.
func (w *loggingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// withRequestLog logs request details including latency, status, and
// response size. Reuses an existing *loggingWriter from outer middleware
// to avoid double-wrapping.
func withRequestLog(next http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper, ok := w.(*loggingWriter)
		if !ok {
			wrapper = &loggingWriter{ResponseWriter: w}
		}

		next.ServeHTTP(wrapper, r)

		status := wrapper.statusCode
		if status == 0 {
			status = http.StatusOK
		}

		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", wrapper.bytesWritten,
			"duration", time.Since(start),
			"ip", r.RemoteAddr,
		)
	})
}

// withRecovery recovers from handler panics to prevent server crashes.
// If headers have already been sent (mid-stream panic) it can only log.
func withRecovery(next http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapper := &loggingWriter{ResponseWriter: w}

		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					"error", err,
					"path", r.URL.Path,
					"headers_sent", wrapper.statusCode != 0,
				)

				if wrapper.statusCode == 0 {
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}
		}()
		next.ServeHTTP(wrapper, r)
	})
}
