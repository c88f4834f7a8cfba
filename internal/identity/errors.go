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

package identity

import "errors"

// Common errors returned by the identity service and repository.
var (
	// ErrUserNotFound is returned when no account exists for the given id
	// or email.
	ErrUserNotFound = errors.New("identity: user not found")

	// ErrEmailTaken is returned when registering an email address that is
	// already in use.
	ErrEmailTaken = errors.New("identity: email already registered")

	// ErrInvalidCredentials is returned for a failed password sign-in. The
	// same error covers unknown emails and wrong passwords so responses do
	// not reveal which accounts exist.
	ErrInvalidCredentials = errors.New("identity: invalid email or password")

	// ErrInvalidToken is returned for unknown or expired verification and
	// reset tokens.
	ErrInvalidToken = errors.New("identity: invalid or expired token")

	// ErrAlreadyVerified is returned when requesting verification for an
	// account whose email is already verified.
	ErrAlreadyVerified = errors.New("identity: email already verified")

	// ErrEmailNotVerified is returned when an operation requires a
	// verified email address.
	ErrEmailNotVerified = errors.New("identity: email not verified")

	// ErrPasswordReuse is returned when a password reset supplies the
	// current password.
	ErrPasswordReuse = errors.New("identity: new password matches the old password")

	// ErrValidation wraps field validation failures.
	ErrValidation = errors.New("identity: validation failed")
)
