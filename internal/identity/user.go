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

// Package identity implements the account lifecycle: registration, password
// sign-in, email verification, and password reset. It also exposes accounts
// to the WebAuthn ceremonies through a directory adapter.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account record. The UUID doubles as the WebAuthn user handle.
type User struct {
	ID                uuid.UUID `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      []byte    `json:"-"`
	EmailVerified     bool      `json:"email_verified"`
	PasskeyEnabled    bool      `json:"passkey_enabled"`
	VerificationToken string    `json:"-"`
	ResetToken        string    `json:"-"`
	ResetTokenExpires time.Time `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// WebAuthnID returns the binary user handle used in ceremonies.
func (u *User) WebAuthnID() []byte {
	id := u.ID
	return id[:]
}

// WebAuthnName returns the login name shown by authenticator UIs.
func (u *User) WebAuthnName() string {
	return u.Username
}

// WebAuthnDisplayName returns the human-friendly display name.
func (u *User) WebAuthnDisplayName() string {
	return u.Username
}

// HasPasskey reports whether the user owns at least one authenticator. The
// session issuer includes this in token claims.
func (u *User) HasPasskey() bool {
	return u.PasskeyEnabled
}

// Clone returns a copy of the user.
func (u *User) Clone() *User {
	dup := *u
	dup.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &dup
}
