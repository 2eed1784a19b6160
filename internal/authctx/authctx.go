// Package authctx carries the authenticated user id of a request through
// context.Context. A context without a user is an anonymous request.
package authctx

import "context"

type userKey struct{}

// WithUser returns a copy of ctx that carries userID
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user id, if any
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
