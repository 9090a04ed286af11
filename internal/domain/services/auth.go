package services

import "context"

// ActorResolver maps a presented credential to the acting user.
// Invalid, expired or missing credentials yield domain.ErrUnauthorized.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (string, error)
}
