package shared

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/token"
)

type claimsContextKey struct{}

// ContextWithClaims stores the verified token claims in context.
func ContextWithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the verified claims from context. A nil result
// means the request carried no authenticated identity.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims
}
