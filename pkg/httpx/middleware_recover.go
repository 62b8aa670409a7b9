package httpx

import (
	"net/http"

	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// RecoverMiddleware converts handler panics into structured 500 responses so
// a malformed request can never take down the process.
func RecoverMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slogx.FromContext(r.Context()).Error("handler panic", "panic", rec, "path", r.URL.Path)
					api.ErrServerError.WriteError(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
