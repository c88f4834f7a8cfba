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
	"bytes"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"

	"github.com/jeremyhahn/go-authd/pkg/metrics"
	"github.com/jeremyhahn/go-authd/pkg/webauthn"
)

// handleRegistrationOptions starts passkey enrollment for the session
// user. The path id must match the authenticated session.
func (s *Server) handleRegistrationOptions(w http.ResponseWriter, r *http.Request) {
	claims, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, ErrUnauthorized)
		return
	}
	sessionID, err := claims.UserID()
	if err != nil {
		writeError(w, ErrUnauthorized)
		return
	}
	pathID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid user id", ErrBadRequest))
		return
	}
	if subtle.ConstantTimeCompare(sessionID, pathID[:]) != 1 {
		writeError(w, ErrForbidden)
		return
	}

	options, err := s.webauthn.BeginRegistration(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordChallengeIssued(metrics.FlowWebAuthnRegistration)
	writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleVerifyRegistration(w http.ResponseWriter, r *http.Request) {
	claims, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, ErrUnauthorized)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, ErrUnauthorized)
		return
	}
	parsed, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", webauthn.ErrInvalidRequest, err))
		return
	}

	_, err = s.webauthn.FinishRegistration(r.Context(), userID, parsed)
	metrics.RecordAuthAttempt(metrics.FlowWebAuthnRegistration, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedResponse{Verified: true})
}

func (s *Server) handleLoginOptions(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	options, err := s.webauthn.BeginLogin(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordChallengeIssued(metrics.FlowWebAuthnLogin)
	writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleLoginVerification(w http.ResponseWriter, r *http.Request) {
	var req LoginVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Assertion) == 0 {
		writeError(w, fmt.Errorf("%w: missing assertion", webauthn.ErrInvalidRequest))
		return
	}
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Assertion))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", webauthn.ErrInvalidRequest, err))
		return
	}

	user, _, err := s.webauthn.FinishLogin(r.Context(), req.Email, parsed)
	metrics.RecordAuthAttempt(metrics.FlowWebAuthnLogin, err)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.sessions.Issue(r.Context(), user, req.RememberMe)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordSessionIssued()
	http.SetCookie(w, s.cookies.Session(token, req.RememberMe, s.sessions.TTL(req.RememberMe)))
	writeJSON(w, http.StatusOK, SignInResponse{Name: user.WebAuthnName(), Passkey: true})
}
