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
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyhahn/go-authd/internal/identity"
	"github.com/jeremyhahn/go-authd/pkg/metrics"
)

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", ErrBadRequest)
	}
	return nil
}

func userResponse(user *identity.User) UserResponse {
	return UserResponse{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		EmailVerified:  user.EmailVerified,
		PasskeyEnabled: user.PasskeyEnabled,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.identity.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse(user))
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.identity.SignIn(r.Context(), req.Email, req.Password)
	if err == nil && !user.EmailVerified {
		err = identity.ErrEmailNotVerified
	}
	metrics.RecordAuthAttempt(metrics.FlowPassword, err)
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
	writeJSON(w, http.StatusOK, SignInResponse{Name: user.Username, Passkey: user.PasskeyEnabled})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.cookies.Clear())
	writeJSON(w, http.StatusOK, MessageResponse{Message: "signed out"})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if _, err := s.identity.VerifyEmail(r.Context(), token); err != nil {
		metrics.RecordAuthAttempt(metrics.FlowEmailVerification, err)
		writeError(w, err)
		return
	}
	metrics.RecordAuthAttempt(metrics.FlowEmailVerification, nil)
	writeJSON(w, http.StatusOK, VerifiedResponse{Verified: true})
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.identity.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "verification email sent"})
}

// handlePasswordResetRequest always acknowledges to avoid disclosing
// which emails have accounts.
func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.identity.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.logger.Info("password reset request failed", "error", err)
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "if the account exists, a reset email was sent"})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := s.identity.ResetPassword(r.Context(), token, req.Password, req.PasswordConfirm)
	metrics.RecordAuthAttempt(metrics.FlowPasswordReset, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}

func (s *Server) sessionUser(r *http.Request) (*identity.User, error) {
	claims, ok := SessionFromContext(r.Context())
	if !ok {
		return nil, ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthorized
	}
	return s.identity.Get(r.Context(), userID)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.sessionUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (s *Server) handlePasskeyStatus(w http.ResponseWriter, r *http.Request) {
	user, err := s.sessionUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PasskeyStatusResponse{Enabled: user.PasskeyEnabled})
}
