package domain

import "context"

type principalKey struct{}

// WithPrincipal stores the resolved Principal in the context. The auth
// middleware binds it exactly once per request.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the Principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ResolvePrincipal is the principal resolver: it returns the Principal
// bound to the context or UnauthenticatedError when none is bound (for
// example on pre-authentication calls). It is pure and side-effect-free,
// so callers may invoke it any number of times per request.
func ResolvePrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated("no principal bound to request")
	}
	return p, nil
}
