package httpx

import (
	"net/http"

	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// RequireUser gates a route to a single account, typically the admin user.
// Must run after AuthnMiddleware. Any other identity gets the same generic
// 401 as a failed token verification.
func RequireUser(username string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := UsernameFromCtx(r.Context())
			if have == "" || have != username {
				slogx.FromContext(r.Context()).Warn("admin gate rejected request", "username", have)
				api.ErrUnauthorized.WriteError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
