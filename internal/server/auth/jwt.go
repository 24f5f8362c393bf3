// Package auth contains the token codec, the authenticated principal and the
// route authorization policy.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind is stamped into the "typ" claim so an access token can never be
// replayed as a refresh token or the other way round.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the signed payload: standard registered claims plus roles and kind.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string  `json:"roles"`
	Type  TokenKind `json:"typ"`
}

// IssuedToken is a freshly signed token together with the values the store
// needs to register it.
type IssuedToken struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// Codec signs and verifies HS256 tokens of one kind with one key.
// It is immutable after construction and safe for concurrent use.
type Codec struct {
	kind     TokenKind
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a codec for kind with the given secret and default lifetime.
func NewCodec(kind TokenKind, secret string, lifetime time.Duration, opts ...CodecOption) (*Codec, error) {
	if kind != KindAccess && kind != KindRefresh {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	c := &Codec{kind: kind, secret: []byte(secret), lifetime: lifetime, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Kind returns the token kind this codec handles.
func (c *Codec) Kind() TokenKind { return c.kind }

// Lifetime returns the configured default lifetime.
func (c *Codec) Lifetime() time.Duration { return c.lifetime }

// Issue signs a token for subject with the given roles, valid for lifetime.
func (c *Codec) Issue(subject string, roles []string, lifetime time.Duration) (*IssuedToken, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.New("token subject is empty")
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}

	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    common.TokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
		Roles: append([]string(nil), roles...),
		Type:  c.kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{ID: claims.ID, Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, issuer, kind and expiry and returns the claims.
//
// Errors: common.ErrInvalidSignature when the signature (or algorithm) does
// not match, common.ErrTokenExpired when now >= exp, common.ErrInvalidToken
// for anything else. The signature is checked before expiry.
func (c *Codec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(common.TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.Type != c.kind {
		return nil, fmt.Errorf("%w: unexpected token kind %q", common.ErrInvalidToken, claims.Type)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: subject or id missing", common.ErrInvalidToken)
	}
	return claims, nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.secret, nil
}
