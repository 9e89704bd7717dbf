package projects

import (
	"context"

	"github.com/poiesic/stackalchemy/core"
)

type userKey struct{}

// WithUser returns a context carrying the authenticated user's ID.
// Identity comes from the external authentication provider; this package
// only trusts what is on the context.
func WithUser(ctx context.Context, userID core.ID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user's ID, if any.
func UserFromContext(ctx context.Context) (core.ID, bool) {
	id, ok := ctx.Value(userKey{}).(core.ID)
	return id, ok && id != 0
}

func requireUser(ctx context.Context) (core.ID, error) {
	id, ok := UserFromContext(ctx)
	if !ok {
		return 0, newError(CodeUnauthorized, MsgUnauthorized, nil)
	}
	return id, nil
}
