package auth

import "errors"

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrExpiredToken      = errors.New("token expired")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrMalformedClaims   = errors.New("malformed token claims")
	ErrInsufficientRole  = errors.New("insufficient role")
	ErrEmptySecret       = errors.New("signing secret is empty")
)
