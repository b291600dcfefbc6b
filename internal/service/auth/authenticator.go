package auth

import (
	"context"
	"strings"

	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/platform/logger"
)

// Authentication methods reported in a Principal
const (
	MethodKey = "key"
	MethodJWT = "jwt"
)

// Principal identifies an authenticated caller
type Principal struct {
	Subject string
	Method  string
}

// Authenticator checks bearer credentials presented to the gateway. A
// credential is accepted when it is a valid gateway JWT, or when it matches
// the bcrypt hash of the static gateway key.
type Authenticator struct {
	keyHash  string
	verifier PasswordVerifier
	jwt      JWTService
}

// NewAuthenticator builds an authenticator from the auth config. It fails
// when neither a key hash nor a JWT secret is configured.
func NewAuthenticator(cfg config.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{
		keyHash:  cfg.GatewayKeyHash,
		verifier: NewBcryptVerifier(),
	}

	if cfg.JWTSecret != "" {
		svc, err := NewJWTService(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		a.jwt = svc
	}

	if a.keyHash == "" && a.jwt == nil {
		return nil, ErrNoCredentials
	}
	return a, nil
}

// Authenticate verifies a bearer credential
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Principal{}, ErrMissingToken
	}

	if a.jwt != nil && looksLikeJWT(credential) {
		claims, err := a.jwt.ValidateToken(ctx, credential)
		if err != nil {
			return Principal{}, err
		}
		return Principal{Subject: claims.Subject, Method: MethodJWT}, nil
	}

	if a.keyHash == "" {
		return Principal{}, ErrInvalidToken
	}
	if err := a.verifier.Compare(a.keyHash, credential); err != nil {
		logger.FromContext(ctx).Debug("gateway key rejected")
		return Principal{}, ErrInvalidToken
	}
	return Principal{Subject: "gateway-key", Method: MethodKey}, nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

func looksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2
}
