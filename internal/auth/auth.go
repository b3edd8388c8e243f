// Package auth supplies bearer tokens for the alerts REST API and stream.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when no credential is configured.
var ErrNoToken = errors.New("auth: no token configured")

// TokenProvider returns the bearer token to send with a request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// SetAuthorization sets the Authorization header from p. A nil provider
// leaves the header untouched.
func SetAuthorization(ctx context.Context, h http.Header, p TokenProvider) error {
	if p == nil {
		return nil
	}
	tok, err := p.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	h.Set("Authorization", "Bearer "+tok)
	return nil
}

// Static is a fixed token issued out of band.
type Static string

// Token returns the token, or ErrNoToken when empty.
func (s Static) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(s))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and tokens without exp.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// SignerConfig configures a Signer.
type SignerConfig struct {
	Secret  string
	Subject string
	Issuer  string
	TTL     time.Duration // default 1h
}

// Claims is the payload of tokens minted by Signer.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Signer mints HS256 tokens and reuses one until it is close to expiry.
type Signer struct {
	secret  []byte
	subject string
	issuer  string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// refreshMargin is how long before expiry a cached token is replaced.
const refreshMargin = 30 * time.Second

// NewSigner creates a Signer.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth: jwt secret is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("auth: jwt subject is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Signer{
		secret:  []byte(cfg.Secret),
		subject: cfg.Subject,
		issuer:  cfg.Issuer,
		ttl:     cfg.TTL,
		now:     time.Now,
	}, nil
}

// Token returns a cached token or signs a new one.
func (s *Signer) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(refreshMargin).Before(s.expires) {
		return s.token, nil
	}

	exp := now.Add(s.ttl)
	claims := Claims{
		Scope: "alerts",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	s.token = signed
	s.expires = exp
	return signed, nil
}

// Parse verifies a token minted with secret and returns its claims.
func Parse(token, secret string) (Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, err
	}
	if !tkn.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return claims, nil
}
