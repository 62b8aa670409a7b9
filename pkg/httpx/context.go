package httpx

import "context"

type ctxKey string

const (
	CtxKeyUsername  ctxKey = "username"
	CtxKeyFreshness ctxKey = "freshness"
)

// UsernameFromCtx returns the authenticated username, or "" when the request
// did not pass through AuthnMiddleware.
func UsernameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUsername).(string); ok {
		return v
	}
	return ""
}

// FreshnessFromCtx returns the token freshness tag set during verification.
func FreshnessFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyFreshness).(string); ok {
		return v
	}
	return ""
}
