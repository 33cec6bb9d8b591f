package context

import (
	"context"

	"lattice/infrastructure/token"
)

type identityKey struct{}

func NewContextWithIdentity(ctx context.Context, id token.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentityFromContext(ctx context.Context) (token.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(token.Identity)
	return id, ok
}
