package httpx

import (
	"context"
	"net/http"

	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// SessionIdentity is the result of a successful token verification.
type SessionIdentity struct {
	SessionID string
	Username  string
	Freshness string // "OK" or "SOON"
}

// SessionVerifier checks an opaque session token and issues the refreshed
// replacement the client must echo on its next request.
type SessionVerifier interface {
	VerifySessionToken(ctx context.Context, raw string) (SessionIdentity, string, error)
}

// AuthnMiddleware verifies the x-auth session token before the route body
// runs. On failure the route never executes and the client gets a generic
// 401 without a token header; the reason is only logged. On success the
// refreshed token and freshness tag are set on the response and the resolved
// username is injected into the request context.
func AuthnMiddleware(v SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := r.Header.Get(api.HeaderAuthToken)
			if raw == "" {
				api.ErrUnauthorized.WriteError(w)
				return
			}

			ident, refreshed, err := v.VerifySessionToken(ctx, raw)
			if err != nil {
				log.Warn("session token rejected", "err", err)
				api.ErrUnauthorized.WriteError(w)
				return
			}

			w.Header().Set(api.HeaderAuthToken, refreshed)
			w.Header().Set(api.HeaderAuthState, ident.Freshness)

			ctx = context.WithValue(ctx, CtxKeyUsername, ident.Username)
			ctx = context.WithValue(ctx, CtxKeyFreshness, ident.Freshness)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
