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

package webauthn

import "context"

// UserDirectory resolves users for ceremonies. Implementations return
// ErrUserNotFound for unknown ids or emails.
type UserDirectory interface {
	// FindByID looks up a user by its binary handle.
	FindByID(ctx context.Context, userID []byte) (User, error)

	// FindByEmail looks up a user by email address.
	FindByEmail(ctx context.Context, email string) (User, error)

	// SetPasskeyEnabled marks the user as owning at least one authenticator.
	// Called after a successful registration ceremony.
	SetPasskeyEnabled(ctx context.Context, userID []byte) error
}

// CredentialStore persists registered authenticators.
type CredentialStore interface {
	// Insert stores a new authenticator. Returns ErrDuplicateCredential when
	// the credential id already exists, regardless of the owning user.
	Insert(ctx context.Context, authenticator *Authenticator) error

	// FindByUser returns all authenticators registered to the user, in
	// registration order. An empty slice is not an error.
	FindByUser(ctx context.Context, userID []byte) ([]*Authenticator, error)

	// FindByCredentialID returns the authenticator with the given credential
	// id, or ErrAuthenticatorNotRegistered.
	FindByCredentialID(ctx context.Context, credentialID []byte) (*Authenticator, error)

	// UpdateCounter conditionally advances the signature counter. The update
	// applies only when signCount is greater than the stored value, or both
	// are zero; otherwise ErrCounterRegressed is returned and the stored
	// value is untouched.
	UpdateCounter(ctx context.Context, credentialID []byte, signCount uint32) error
}

// ChallengeStore persists at most one live challenge per user.
type ChallengeStore interface {
	// Put stores the challenge, replacing any live challenge for the same
	// user. The replaced challenge is no longer consumable.
	Put(ctx context.Context, challenge *Challenge) error

	// Consume atomically reads and clears the live challenge for the user.
	// Returns ErrChallengeNotFound when none exists. Of concurrent consumers
	// exactly one receives the challenge.
	Consume(ctx context.Context, userID []byte) (*Challenge, error)
}

// SessionIssuer mints an opaque session credential for an authenticated
// user. The ceremonies never issue sessions themselves; the transport layer
// invokes the issuer after a ceremony succeeds.
type SessionIssuer interface {
	IssueSession(ctx context.Context, user User) (string, error)
}
