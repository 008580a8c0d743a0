package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer turns a handler panic into a 500 INTERNAL_ERROR response.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
// When the handler had already started its response only the log entry is
// written.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrapResponseWriter(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				logger.LogAttrs(r.Context(), slog.LevelError, "handler panicked",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("route", routePattern(r)),
					slog.String("panic", fmt.Sprint(v)),
					slog.Bool("response_started", rw.wroteHeader),
					slog.String("stack", string(debug.Stack())),
				)
				if rw.wroteHeader {
					return
				}
				writeError(rw, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
