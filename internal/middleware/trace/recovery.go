package trace

import (
	"net/http"
	"runtime/debug"

	applog "orcamentos/internal/log"
)

// Recoverer turns a handler panic into a 500 and logs it with the request id and stack.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "panic recovered",
					applog.FieldRequestID, GetRequestID(r.Context()),
					"panic", rvr,
					"stack", string(debug.Stack()))

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
