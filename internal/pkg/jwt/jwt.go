package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSigningKeyTooShort = errors.New("HS512 signing key must be at least 64 bytes")
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// Operator identifies whoever calls the admin endpoints.
type Operator struct {
	ID    string
	Email string
}

// JWT issues and checks operator tokens.
type JWT interface {
	Generate(op Operator) (string, error)
	Verify(token string) (Claims, error)
}

// Config is read from the jwt.* keys.
type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration // defaults to one hour
	Clock     interface{ Now() time.Time }
	UUID      interface{ Generate() string }
}

// Claims are the registered claims plus the operator email, which is the
// casbin subject for authorization.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Operator rebuilds the identity the token was issued for.
func (c Claims) Operator() Operator {
	return Operator{ID: c.Subject, Email: c.Email}
}

type claimsKey struct{}

// SetAuth stores verified claims in ctx.
func SetAuth(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// GetAuth returns the claims stored by SetAuth, or nil.
func GetAuth(ctx context.Context) *Claims {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	if !ok {
		return nil
	}
	return &c
}
