package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Authenticator struct {
	secret []byte
	now    func() time.Time
}

type Option func(*Authenticator)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

func NewAuthenticator(secret string, opts ...Option) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	a := &Authenticator{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Authenticate verifies an HS256 token and returns its claims.
func (a *Authenticator) Authenticate(credential string) (*Claims, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		credential,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" || claims.RoleName == "" {
		return nil, ErrMalformedClaims
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedClaims
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return ErrMalformedClaims
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>"
// header value. Any other shape yields "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}

	token = strings.TrimSpace(token)
	if strings.ContainsAny(token, " \t") {
		return ""
	}

	return token
}
