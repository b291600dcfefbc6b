package auth

import (
	"context"
	"time"
)

// TokenTypeGateway marks tokens that grant access to the gateway API
const TokenTypeGateway = "gateway"

// JWTService defines operations for managing gateway access tokens.
type JWTService interface {
	// GenerateToken creates a signed token for subject that expires after lifetime.
	GenerateToken(ctx context.Context, subject string, lifetime time.Duration) (string, error)

	// ValidateToken validates the token string and extracts the claims.
	// Returns an error if validation fails (expired, invalid signature, wrong type).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// TokenType indicates the purpose of the token.
	// Used to prevent token misuse across different contexts.
	TokenType string `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
