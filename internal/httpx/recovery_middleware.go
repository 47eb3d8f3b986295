package httpx

import (
	"net/http"
	"runtime/debug"

	"readshelf/internal/logging"
)

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, ok := w.(*responseWriter)
		if !ok {
			rw = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		}
		defer func() {
			if err := recover(); err != nil {
				logging.Ctx(r.Context()).Error().
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				if !rw.wroteHeader() {
					JSONError(rw, r, http.StatusInternalServerError, CodeInternal, "An internal error occurred", nil)
				}
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
