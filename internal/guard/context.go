package guard

import "context"

type principalContextKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// ContextProvider reads the principal straight from the request context.
type ContextProvider struct{}

// Principal implements SessionProvider.
func (ContextProvider) Principal(ctx context.Context) *Principal {
	return PrincipalFromContext(ctx)
}
