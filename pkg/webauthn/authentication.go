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
	"bytes"
	"context"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// BeginLogin starts an authentication ceremony for the user with the given
// email. The returned options allow exactly the user's registered
// credentials and carry a freshly issued challenge. Users without
// credentials fail with ErrNoCredentials before any challenge is minted.
func (s *Service) BeginLogin(ctx context.Context, email string) (*protocol.CredentialAssertion, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, WrapError("begin login", err)
	}

	authenticators, err := s.credentials.FindByUser(ctx, user.WebAuthnID())
	if err != nil {
		return nil, WrapError("begin login", err)
	}
	if len(authenticators) == 0 {
		return nil, NewError("begin login", ErrNoCredentials)
	}

	options, _, err := s.webauthn.BeginLogin(
		&relyingUser{User: user, authenticators: authenticators},
		webauthn.WithUserVerification(s.config.loginUserVerification()),
	)
	if err != nil {
		return nil, WrapError("begin login", err)
	}

	challenge, err := s.bindChallenge(ctx, user)
	if err != nil {
		return nil, WrapError("begin login", err)
	}
	options.Response.Challenge = protocol.URLEncodedBase64(challenge.Value)

	s.logger.Debug("login ceremony started",
		"user", user.WebAuthnName(),
		"allowed_credentials", len(authenticators))
	return options, nil
}

// FinishLogin verifies an assertion response for the user with the given
// email. The challenge is consumed before signature verification. On
// success the matched authenticator's counter is advanced through the
// store's conditional update and the updated authenticator is returned. A
// non-advancing non-zero counter fails with ErrCounterRegressed and leaves
// the stored counter untouched.
func (s *Service) FinishLogin(ctx context.Context, email string, response *protocol.ParsedCredentialAssertionData) (User, *Authenticator, error) {
	const op = "finish login"

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, WrapError(op, err)
	}
	if response == nil || len(response.RawID) == 0 {
		return nil, nil, NewError(op, ErrInvalidRequest)
	}

	authenticators, err := s.credentials.FindByUser(ctx, user.WebAuthnID())
	if err != nil {
		return nil, nil, WrapError(op, err)
	}
	var matched *Authenticator
	allowed := make([][]byte, 0, len(authenticators))
	for _, a := range authenticators {
		allowed = append(allowed, a.CredentialID)
		if bytes.Equal(a.CredentialID, response.RawID) {
			matched = a
		}
	}
	if matched == nil {
		return nil, nil, NewError(op, ErrAuthenticatorNotRegistered)
	}

	challenge, err := s.challenges.Consume(ctx, user.WebAuthnID())
	if err != nil {
		return nil, nil, WrapError(op, err)
	}

	session := s.session(user, challenge, allowed, s.config.loginUserVerification())
	credential, err := s.webauthn.ValidateLogin(
		&relyingUser{User: user, authenticators: authenticators},
		session,
		response,
	)
	if err != nil {
		s.logger.Debug("assertion verification failed",
			"user", user.WebAuthnName(),
			"error", err)
		return nil, nil, verificationFailed(op, err)
	}
	if credential.Authenticator.CloneWarning {
		s.logger.Warn("signature counter did not advance, possible cloned authenticator",
			"user", user.WebAuthnName(),
			"stored_counter", matched.SignCount,
			"response_counter", credential.Authenticator.SignCount)
		return nil, nil, NewError(op, ErrCounterRegressed)
	}

	if err := s.credentials.UpdateCounter(ctx, matched.CredentialID, credential.Authenticator.SignCount); err != nil {
		return nil, nil, WrapError(op, err)
	}
	matched.SignCount = credential.Authenticator.SignCount
	matched.LastUsedAt = time.Now().UTC()

	s.logger.Info("user authenticated",
		"user", user.WebAuthnName(),
		"sign_count", matched.SignCount)
	return user, matched, nil
}
