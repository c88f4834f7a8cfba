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

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeremyhahn/go-authd/internal/identity"
	"github.com/jeremyhahn/go-authd/pkg/session"
	"github.com/jeremyhahn/go-authd/pkg/webauthn"
)

// HTTP boundary errors.
var (
	ErrUnauthorized = errors.New("rest: unauthorized")
	ErrForbidden    = errors.New("rest: forbidden")
	ErrBadRequest   = errors.New("rest: bad request")
)

// mapError translates a service error into an HTTP status and a stable
// machine-readable error kind.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, webauthn.ErrUserNotFound),
		errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, webauthn.ErrNoCredentials):
		return http.StatusBadRequest, "no_credentials"
	case errors.Is(err, webauthn.ErrChallengeNotFound):
		return http.StatusBadRequest, "challenge_not_found"
	case errors.Is(err, webauthn.ErrVerificationFailed):
		return http.StatusBadRequest, "verification_failed"
	case errors.Is(err, webauthn.ErrAuthenticatorNotRegistered):
		return http.StatusBadRequest, "authenticator_not_registered"
	case errors.Is(err, webauthn.ErrDuplicateCredential):
		return http.StatusConflict, "duplicate_credential"
	case errors.Is(err, webauthn.ErrCounterRegressed):
		return http.StatusForbidden, "counter_regressed"
	case errors.Is(err, webauthn.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusBadRequest, "invalid_credentials"
	case errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, session.ErrInvalidToken):
		return http.StatusBadRequest, "invalid_token"
	case errors.Is(err, identity.ErrAlreadyVerified):
		return http.StatusBadRequest, "already_verified"
	case errors.Is(err, identity.ErrEmailNotVerified):
		return http.StatusForbidden, "email_not_verified"
	case errors.Is(err, identity.ErrPasswordReuse):
		return http.StatusBadRequest, "password_reuse"
	case errors.Is(err, identity.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("encode response", "error", err)
		}
	}
}

// writeError maps err to a status code and writes the uniform error body.
// Internal errors are logged and their details withheld from the client.
func writeError(w http.ResponseWriter, err error) {
	status, kind := mapError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}
