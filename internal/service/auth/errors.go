package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrWrongTokenType indicates a well-signed token issued for another purpose
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrWeakSecret indicates a signing secret below the minimum length
	ErrWeakSecret = errors.New("jwt secret must be at least 32 characters")

	// ErrNoCredentials indicates authentication is required but nothing can verify a token
	ErrNoCredentials = errors.New("no gateway key hash or jwt secret configured")
)
