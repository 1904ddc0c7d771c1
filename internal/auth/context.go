package auth

import "context"

type contextKey struct{}

// WithIdentity returns a context carrying the decoded identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom returns the identity attached by the auth middleware, or
// nil when the request was not authenticated.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}
