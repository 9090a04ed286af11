package auth

import (
	"context"
	"errors"
	"log/slog"

	"scriptorium/internal/config"
	"scriptorium/internal/domain"
	"scriptorium/internal/domain/services"
)

// TokenResolver resolves bearer tokens to actor IDs
type TokenResolver struct {
	verifier JWTVerifier
}

// NewTokenResolver creates an ActorResolver backed by verifier
func NewTokenResolver(verifier JWTVerifier) services.ActorResolver {
	return &TokenResolver{verifier: verifier}
}

// ResolveActor returns the token subject, or domain.ErrUnauthorized
func (r *TokenResolver) ResolveActor(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthorized
	}

	claims, err := r.verifier.VerifyToken(token)
	if err != nil {
		return "", domain.ErrUnauthorized
	}
	return claims.GetUserID(), nil
}

// NewVerifier picks the verifier configured in cfg: JWKS when a URL is set, otherwise the shared secret
func NewVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (JWTVerifier, error) {
	switch {
	case cfg.JWKSURL != "":
		return NewJWKSVerifier(ctx, cfg.JWKSURL, logger)
	case cfg.JWTSecret != "":
		return NewSecretVerifier(cfg.JWTSecret, logger)
	default:
		return nil, errors.New("either JWKS_URL or JWT_SECRET must be set")
	}
}
