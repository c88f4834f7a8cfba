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

package rest

import "encoding/json"

// ErrorResponse is the uniform error body for all failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RegisterRequest is the account registration body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the password sign-in body.
type SignInRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// EmailRequest carries a bare email address.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the password reset completion body.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UserResponse is the public account view.
type UserResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"emailVerified"`
	PasskeyEnabled bool   `json:"passkeyEnabled"`
}

// SignInResponse is returned after a successful authentication.
type SignInResponse struct {
	Name    string `json:"name"`
	Passkey bool   `json:"passkey"`
}

// VerifiedResponse acknowledges a completed verification.
type VerifiedResponse struct {
	Verified bool `json:"verified"`
}

// MessageResponse carries a human-readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// PasskeyStatusResponse reports passkey enrollment for the session user.
type PasskeyStatusResponse struct {
	Enabled bool `json:"enabled"`
}

// LoginVerificationRequest is the assertion verification body. The
// assertion field holds the raw credential response produced by the
// browser's WebAuthn API.
type LoginVerificationRequest struct {
	Email      string          `json:"email"`
	RememberMe bool            `json:"rememberMe"`
	Assertion  json.RawMessage `json:"assertion"`
}
