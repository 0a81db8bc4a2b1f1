package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLen = 64

// HS512 signs and verifies operator tokens with a shared secret.
type HS512 struct {
	cfg    Config
	parser *jwt.Parser
}

// NewHS512 rejects secrets shorter than 512 bits.
func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, ErrSigningKeyTooShort
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Clock.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, jwt.WithAudience(cfg.Audiences...))
	}

	return &HS512{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

func (h *HS512) Generate(op Operator) (string, error) {
	now := h.cfg.Clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        h.cfg.UUID.Generate(),
			Subject:   op.ID,
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audiences,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.TTL)),
		},
		Email: op.Email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(h.cfg.Secret)
}

// Verify returns ErrTokenExpired for expired tokens and ErrInvalidToken
// wrapping the cause for everything else.
func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := h.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return h.cfg.Secret, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	default:
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
}
