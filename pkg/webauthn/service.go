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

// Package webauthn implements the WebAuthn registration and authentication
// ceremonies over pluggable user, credential, and challenge stores.
//
// The package owns the challenge lifecycle: every ceremony begin mints a
// fresh single-use challenge through the ChallengeManager, and every finish
// consumes it exactly once before verification, so a response can never
// verify twice. Signature counters advance through a conditional store
// update and a regression is reported, never persisted.
package webauthn

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Service runs registration and authentication ceremonies. All methods are
// safe for concurrent use; per-user challenge state lives in the
// ChallengeStore.
type Service struct {
	config      *Config
	webauthn    *webauthn.WebAuthn
	users       UserDirectory
	credentials CredentialStore
	challenges  *ChallengeManager
	logger      *slog.Logger
}

// ServiceParams holds the dependencies for creating a Service.
type ServiceParams struct {
	// Config is the relying party configuration. Required.
	Config *Config

	// Users resolves accounts. Required.
	Users UserDirectory

	// Credentials persists authenticators. Required.
	Credentials CredentialStore

	// Challenges persists single-use challenges. Required.
	Challenges ChallengeStore

	// Logger receives ceremony logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewService creates a ceremony service, applying configuration defaults
// and validating dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidConfiguration)
	}
	if params.Users == nil {
		return nil, fmt.Errorf("%w: user directory is required", ErrInvalidConfiguration)
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("%w: credential store is required", ErrInvalidConfiguration)
	}
	if params.Challenges == nil {
		return nil, fmt.Errorf("%w: challenge store is required", ErrInvalidConfiguration)
	}

	config := params.Config
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	wa, err := webauthn.New(config.toLibraryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:      config,
		webauthn:    wa,
		users:       params.Users,
		credentials: params.Credentials,
		challenges:  NewChallengeManager(params.Challenges, config.ChallengeSize),
		logger:      logger,
	}, nil
}

// Config returns the effective configuration after defaults were applied.
func (s *Service) Config() *Config {
	return s.config
}

// relyingUser adapts a directory user and its stored authenticators to the
// verification library's user interface.
type relyingUser struct {
	User
	authenticators []*Authenticator
}

func (u *relyingUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(u.authenticators))
	for _, a := range u.authenticators {
		creds = append(creds, a.libraryCredential())
	}
	return creds
}

// session rebuilds the verification session from a consumed challenge. The
// library compares the base64url form of the challenge against client data,
// and rejects the session once Expires has passed.
func (s *Service) session(user User, challenge *Challenge, allowed [][]byte, uv protocol.UserVerificationRequirement) webauthn.SessionData {
	sd := webauthn.SessionData{
		Challenge:            base64.RawURLEncoding.EncodeToString(challenge.Value),
		UserID:               user.WebAuthnID(),
		AllowedCredentialIDs: allowed,
		UserVerification:     uv,
	}
	if s.config.ChallengeTTL > 0 {
		sd.Expires = challenge.CreatedAt.Add(s.config.ChallengeTTL)
	}
	return sd
}

// bindChallenge issues a fresh challenge for the user and returns it so the
// caller can splice it into the credential options sent to the client.
func (s *Service) bindChallenge(ctx context.Context, user User) (*Challenge, error) {
	challenge, err := s.challenges.Issue(ctx, user.WebAuthnID())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("challenge issued",
		"user", user.WebAuthnName(),
		"size", len(challenge.Value),
		"created_at", challenge.CreatedAt.Format(time.RFC3339))
	return challenge, nil
}
