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
	"context"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// BeginRegistration starts a registration ceremony for the user. The
// returned options carry a freshly issued challenge and exclude every
// credential the user already registered, so an enrolled authenticator
// cannot enroll twice.
func (s *Service) BeginRegistration(ctx context.Context, userID []byte) (*protocol.CredentialCreation, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, WrapError("begin registration", err)
	}

	existing, err := s.credentials.FindByUser(ctx, userID)
	if err != nil {
		return nil, WrapError("begin registration", err)
	}
	exclusions := make([]protocol.CredentialDescriptor, 0, len(existing))
	for _, a := range existing {
		exclusions = append(exclusions, a.descriptor())
	}

	options, _, err := s.webauthn.BeginRegistration(
		&relyingUser{User: user, authenticators: existing},
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		return nil, WrapError("begin registration", err)
	}

	// The library session is discarded; the challenge manager owns the
	// challenge lifecycle, so the stored value replaces the library-minted
	// one in the options.
	challenge, err := s.bindChallenge(ctx, user)
	if err != nil {
		return nil, WrapError("begin registration", err)
	}
	options.Response.Challenge = protocol.URLEncodedBase64(challenge.Value)

	s.logger.Debug("registration ceremony started",
		"user", user.WebAuthnName(),
		"exclusions", len(exclusions))
	return options, nil
}

// FinishRegistration verifies an attestation response and persists the new
// authenticator. The user's challenge is consumed before verification, so a
// second submission of the same response fails with ErrChallengeNotFound
// whether or not this verification succeeds.
func (s *Service) FinishRegistration(ctx context.Context, userID []byte, response *protocol.ParsedCredentialCreationData) (*Authenticator, error) {
	const op = "finish registration"

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, WrapError(op, err)
	}
	if response == nil || len(response.RawID) == 0 {
		return nil, NewError(op, ErrInvalidRequest)
	}

	challenge, err := s.challenges.Consume(ctx, userID)
	if err != nil {
		return nil, WrapError(op, err)
	}

	existing, err := s.credentials.FindByUser(ctx, userID)
	if err != nil {
		return nil, WrapError(op, err)
	}

	session := s.session(user, challenge, nil, s.config.registrationUserVerification())
	credential, err := s.webauthn.CreateCredential(
		&relyingUser{User: user, authenticators: existing},
		session,
		response,
	)
	if err != nil {
		s.logger.Debug("attestation verification failed",
			"user", user.WebAuthnName(),
			"error", err)
		return nil, verificationFailed(op, err)
	}

	authenticator := newAuthenticator(userID, credential)
	if err := s.credentials.Insert(ctx, authenticator); err != nil {
		return nil, WrapError(op, err)
	}
	if err := s.users.SetPasskeyEnabled(ctx, userID); err != nil {
		return nil, WrapError(op, err)
	}

	s.logger.Info("authenticator registered",
		"user", user.WebAuthnName(),
		"device_type", authenticator.DeviceType,
		"backup_eligible", authenticator.BackupEligible)
	return authenticator, nil
}
