// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authd.
//
// go-authd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package session issues and verifies JWT session credentials for
// authenticated users, and computes the cookie policy they travel in.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-authd/pkg/webauthn"
)

const (
	// DefaultTTL is the session lifetime without remember-me.
	DefaultTTL = 24 * time.Hour

	// DefaultRememberTTL is the session lifetime with remember-me.
	DefaultRememberTTL = 7 * 24 * time.Hour
)

var (
	// ErrMissingSecret is returned when an issuer is created without a
	// signing secret.
	ErrMissingSecret = errors.New("session: signing secret is required")

	// ErrInvalidToken is returned when a token fails signature or claims
	// validation.
	ErrInvalidToken = errors.New("session: invalid token")
)

// Claims are the session token claims. The subject is the base64url form of
// the user's binary handle.
type Claims struct {
	Name    string `json:"name"`
	Passkey bool   `json:"passkey"`
	jwt.RegisteredClaims
}

// UserID decodes the binary user handle from the subject claim.
func (c *Claims) UserID() ([]byte, error) {
	id, err := base64.RawURLEncoding.DecodeString(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject encoding", ErrInvalidToken)
	}
	return id, nil
}

// passkeyHolder is implemented by user types that track passkey enrollment.
type passkeyHolder interface {
	HasPasskey() bool
}

// Issuer mints and verifies HS256 session tokens. It satisfies the ceremony
// layer's SessionIssuer contract.
type Issuer struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	rememberTTL time.Duration
}

// IssuerParams holds the dependencies for creating an Issuer.
type IssuerParams struct {
	// Secret is the HMAC signing key. Required.
	Secret string

	// Issuer is the iss claim value.
	Issuer string

	// TTL is the token lifetime without remember-me. Defaults to 24h.
	TTL time.Duration

	// RememberTTL is the token lifetime with remember-me. Defaults to 7d.
	RememberTTL time.Duration
}

// NewIssuer creates a session issuer.
func NewIssuer(params IssuerParams) (*Issuer, error) {
	if params.Secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := params.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	rememberTTL := params.RememberTTL
	if rememberTTL == 0 {
		rememberTTL = DefaultRememberTTL
	}
	return &Issuer{
		secret:      []byte(params.Secret),
		issuer:      params.Issuer,
		ttl:         ttl,
		rememberTTL: rememberTTL,
	}, nil
}

// Issue mints a signed session token for the user. Remember-me extends the
// token lifetime.
func (i *Issuer) Issue(_ context.Context, user webauthn.User, remember bool) (string, error) {
	ttl := i.ttl
	if remember {
		ttl = i.rememberTTL
	}

	passkey := false
	if holder, ok := user.(passkeyHolder); ok {
		passkey = holder.HasPasskey()
	}

	now := time.Now()
	claims := Claims{
		Name:    user.WebAuthnName(),
		Passkey: passkey,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   base64.RawURLEncoding.EncodeToString(user.WebAuthnID()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// IssueSession mints a session token with the default lifetime.
func (i *Issuer) IssueSession(ctx context.Context, user webauthn.User) (string, error) {
	return i.Issue(ctx, user, false)
}

// Verify validates the token signature and standard claims and returns the
// session claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TTL returns the token lifetime for the given remember-me choice.
func (i *Issuer) TTL(remember bool) time.Duration {
	if remember {
		return i.rememberTTL
	}
	return i.ttl
}
