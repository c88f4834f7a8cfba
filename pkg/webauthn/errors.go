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

import (
	"errors"
	"fmt"
)

// Common errors returned by the ceremony services and stores.
var (
	// ErrUserNotFound is returned when no user exists for the given id or email.
	ErrUserNotFound = errors.New("webauthn: user not found")

	// ErrNoCredentials is returned when authentication is requested for a user
	// that has no registered authenticators.
	ErrNoCredentials = errors.New("webauthn: user has no registered credentials")

	// ErrChallengeNotFound is returned when no live challenge exists for the
	// user. A challenge is consumed exactly once, so a replayed ceremony
	// response fails with this error.
	ErrChallengeNotFound = errors.New("webauthn: challenge not found")

	// ErrVerificationFailed is returned when attestation or assertion
	// verification fails (challenge mismatch, bad origin or RP id, invalid
	// signature, missing required user verification).
	ErrVerificationFailed = errors.New("webauthn: verification failed")

	// ErrAuthenticatorNotRegistered is returned when an assertion references
	// a credential id that is not registered to the user.
	ErrAuthenticatorNotRegistered = errors.New("webauthn: authenticator not registered")

	// ErrDuplicateCredential is returned when registering a credential id
	// that already exists, for any user.
	ErrDuplicateCredential = errors.New("webauthn: credential already registered")

	// ErrCounterRegressed is returned when an assertion carries a signature
	// counter that did not advance, indicating a possible cloned
	// authenticator. The stored counter is left untouched.
	ErrCounterRegressed = errors.New("webauthn: signature counter regressed")

	// ErrInvalidRequest is returned when a ceremony response is missing
	// required fields.
	ErrInvalidRequest = errors.New("webauthn: invalid request")

	// ErrInvalidConfiguration is returned when the service is constructed
	// with an invalid or incomplete configuration.
	ErrInvalidConfiguration = errors.New("webauthn: invalid configuration")
)

// Error wraps an underlying error with the ceremony operation that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches the wrapped error, so callers can use
// errors.Is against the sentinel values above.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates an Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// WrapError wraps err with operation context. Returns nil if err is nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// verificationFailed folds a library verification error into the
// ErrVerificationFailed kind while keeping its detail in the message. The
// raw library error is never returned to callers.
func verificationFailed(op string, cause error) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrVerificationFailed, cause)}
}

// IsUserNotFound returns true if the error indicates an unknown user.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsNoCredentials returns true if the error indicates a user without
// registered authenticators.
func IsNoCredentials(err error) bool {
	return errors.Is(err, ErrNoCredentials)
}

// IsChallengeNotFound returns true if the error indicates a missing or
// already consumed challenge.
func IsChallengeNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound)
}

// IsVerificationFailed returns true if the error indicates a failed
// attestation or assertion verification.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}

// IsDuplicateCredential returns true if the error indicates a credential id
// collision.
func IsDuplicateCredential(err error) bool {
	return errors.Is(err, ErrDuplicateCredential)
}

// IsCounterRegressed returns true if the error indicates a non-advancing
// signature counter.
func IsCounterRegressed(err error) bool {
	return errors.Is(err, ErrCounterRegressed)
}
