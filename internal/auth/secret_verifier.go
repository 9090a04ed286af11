package auth

import (
	"errors"
	"log/slog"

	"scriptorium/internal/domain"
	"scriptorium/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

// SecretVerifier implements JWTVerifier for HS256 tokens signed with a shared secret.
type SecretVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewSecretVerifier creates a verifier for tokens signed with secret
func NewSecretVerifier(secret string, logger *slog.Logger) (JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}

	logger.Info("JWT verifier initialized", "method", "HS256")

	return &SecretVerifier{
		secret: []byte(secret),
		logger: logger,
	}, nil
}

// VerifyToken validates an HS256 token.
func (v *SecretVerifier) VerifyToken(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	return claimsFrom(token, v.logger)
}

// Close is a no-op; the secret verifier holds no resources.
func (v *SecretVerifier) Close() error {
	return nil
}
