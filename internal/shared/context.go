package shared

import "context"

// Identity describes the authenticated caller bound to a request. It is
// populated once at request entry from the presented session token and
// passed down via context, never held in ambient state.
type Identity struct {
	Username string
	Role     string
	Token    string
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context, nil when the
// request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
