package invite

import (
	"context"
)

var claimsCtxKey = &contextKey{"session_claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the session claims in the given context
func WithClaimsContext(r context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the session claims from the standard context
func GetClaims(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok && raw != nil
}
