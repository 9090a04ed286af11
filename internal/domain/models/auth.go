package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims represents the JWT claims carried by API access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email,omitempty"`
	Role                 string `json:"role,omitempty"`
}

// GetUserID returns the actor ID from the JWT subject claim.
func (c *AccessClaims) GetUserID() string {
	return c.Subject
}
