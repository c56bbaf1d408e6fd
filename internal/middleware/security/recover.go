package security

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applog "smartexpense/internal/log"
)

// Recover turns a handler panic into a 500 written by onPanic.
func Recover(onPanic func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					applog.FieldError, fmt.Sprint(rec),
					applog.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				onPanic(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
