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
	"encoding/json"
	"testing"
	"time"

	"github.com/descope/virtualwebauthn"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ceremonyEnv bundles a service over in-memory stores with a virtual
// relying party for full round-trip tests.
type ceremonyEnv struct {
	svc        *Service
	directory  *MemoryUserDirectory
	creds      *MemoryCredentialStore
	challenges *MemoryChallengeStore
	rp         virtualwebauthn.RelyingParty
}

func newCeremonyEnv(t *testing.T, cfg *Config) *ceremonyEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	directory := NewMemoryUserDirectory()
	creds := NewMemoryCredentialStore()
	challenges := NewMemoryChallengeStore()

	svc, err := NewService(ServiceParams{
		Config:      cfg,
		Users:       directory,
		Credentials: creds,
		Challenges:  challenges,
	})
	require.NoError(t, err)

	return &ceremonyEnv{
		svc:        svc,
		directory:  directory,
		creds:      creds,
		challenges: challenges,
		rp: virtualwebauthn.RelyingParty{
			Name:   cfg.RPDisplayName,
			ID:     cfg.RPID,
			Origin: cfg.RPOrigins[0],
		},
	}
}

func (e *ceremonyEnv) addUser(id, email, username string) *DirectoryUser {
	user := &DirectoryUser{ID: []byte(id), Email: email, Username: username}
	e.directory.Add(user)
	return user
}

// attest runs BeginRegistration and produces the parsed attestation
// response a browser would submit.
func (e *ceremonyEnv) attest(t *testing.T, user *DirectoryUser, authenticator virtualwebauthn.Authenticator, credential virtualwebauthn.Credential) *protocol.ParsedCredentialCreationData {
	t.Helper()
	options, err := e.svc.BeginRegistration(context.Background(), user.ID)
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	attestation := virtualwebauthn.CreateAttestationResponse(e.rp, authenticator, credential, *parsedOptions)
	parsed, err := parseAttestationResponse(attestation)
	require.NoError(t, err)
	return parsed
}

// assert runs BeginLogin and produces the parsed assertion response for the
// given credential.
func (e *ceremonyEnv) assertion(t *testing.T, email string, authenticator virtualwebauthn.Authenticator, credential virtualwebauthn.Credential) *protocol.ParsedCredentialAssertionData {
	t.Helper()
	options, err := e.svc.BeginLogin(context.Background(), email)
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	assertion := virtualwebauthn.CreateAssertionResponse(e.rp, authenticator, credential, *parsedOptions)
	parsed, err := parseAssertionResponse(assertion)
	require.NoError(t, err)
	return parsed
}

// enroll registers the credential for the user and returns the persisted
// authenticator.
func (e *ceremonyEnv) enroll(t *testing.T, user *DirectoryUser, authenticator *virtualwebauthn.Authenticator, credential virtualwebauthn.Credential) *Authenticator {
	t.Helper()
	parsed := e.attest(t, user, *authenticator, credential)
	registered, err := e.svc.FinishRegistration(context.Background(), user.ID, parsed)
	require.NoError(t, err)
	authenticator.AddCredential(credential)
	return registered
}

func TestIntegration_RegistrationFlow(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	options, err := env.svc.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "example.com", options.Response.RelyingParty.ID)
	assert.Equal(t, "Example Corp", options.Response.RelyingParty.Name)
	assert.Equal(t, "u1", options.Response.User.Name)
	assert.NotEmpty(t, options.Response.Challenge)
	assert.Empty(t, options.Response.CredentialExcludeList)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)
	attestation := virtualwebauthn.CreateAttestationResponse(env.rp, authenticator, credential, *parsedOptions)
	parsed, err := parseAttestationResponse(attestation)
	require.NoError(t, err)

	registered, err := env.svc.FinishRegistration(ctx, user.ID, parsed)
	require.NoError(t, err)
	assert.Equal(t, parsed.RawID, registered.CredentialID)
	assert.Equal(t, uint32(0), registered.SignCount)
	assert.NotEmpty(t, registered.PublicKey)
	assert.False(t, registered.CreatedAt.IsZero())

	// The authenticator is persisted and the account flagged.
	stored, err := env.creds.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, registered.CredentialID, stored[0].CredentialID)
	assert.True(t, user.PasskeyEnabled)
}

func TestIntegration_RegistrationExcludesExistingCredentials(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	first := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	registered := env.enroll(t, user, &authenticator, first)

	options, err := env.svc.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, options.Response.CredentialExcludeList, 1)
	assert.Equal(t, protocol.URLEncodedBase64(registered.CredentialID), protocol.URLEncodedBase64(options.Response.CredentialExcludeList[0].CredentialID))
}

func TestIntegration_ReplayedAttestationFails(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	parsed := env.attest(t, user, authenticator, credential)

	_, err := env.svc.FinishRegistration(ctx, user.ID, parsed)
	require.NoError(t, err)

	// The challenge was consumed by the first finish.
	_, err = env.svc.FinishRegistration(ctx, user.ID, parsed)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestIntegration_DuplicateCredentialAcrossUsers(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	alice := env.addUser("user-1", "alice@example.com", "alice")
	bob := env.addUser("user-2", "bob@example.com", "bob")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.enroll(t, alice, &authenticator, credential)

	// The same credential attested for another account is rejected.
	parsed := env.attest(t, bob, authenticator, credential)
	_, err := env.svc.FinishRegistration(ctx, bob.ID, parsed)
	assert.ErrorIs(t, err, ErrDuplicateCredential)

	stored, err := env.creds.FindByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestIntegration_LoginFlow(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	registered := env.enroll(t, user, &authenticator, credential)

	credential.Counter++
	parsed := env.assertion(t, user.Email, authenticator, credential)

	loggedIn, used, err := env.svc.FinishLogin(ctx, user.Email, parsed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.WebAuthnID())
	assert.Equal(t, registered.CredentialID, used.CredentialID)
	assert.Equal(t, uint32(1), used.SignCount)
	assert.False(t, used.LastUsedAt.IsZero())

	// The stored counter advanced with the login.
	stored, err := env.creds.FindByCredentialID(ctx, registered.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.SignCount)
}

func TestIntegration_ReplayedAssertionFails(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.enroll(t, user, &authenticator, credential)

	credential.Counter++
	parsed := env.assertion(t, user.Email, authenticator, credential)

	_, _, err := env.svc.FinishLogin(ctx, user.Email, parsed)
	require.NoError(t, err)

	_, _, err = env.svc.FinishLogin(ctx, user.Email, parsed)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestIntegration_CounterRegressionFails(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	registered := env.enroll(t, user, &authenticator, credential)

	credential.Counter = 5
	parsed := env.assertion(t, user.Email, authenticator, credential)
	_, _, err := env.svc.FinishLogin(ctx, user.Email, parsed)
	require.NoError(t, err)

	// A cloned authenticator replays the same counter value.
	parsed = env.assertion(t, user.Email, authenticator, credential)
	_, _, err = env.svc.FinishLogin(ctx, user.Email, parsed)
	assert.ErrorIs(t, err, ErrCounterRegressed)

	// The stored counter is untouched by the failed login.
	stored, err := env.creds.FindByCredentialID(ctx, registered.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), stored.SignCount)
}

func TestIntegration_UnknownCredentialFails(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	alice := env.addUser("user-1", "alice@example.com", "alice")
	bob := env.addUser("user-2", "bob@example.com", "bob")

	aliceAuth := virtualwebauthn.NewAuthenticator()
	aliceCred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.enroll(t, alice, &aliceAuth, aliceCred)

	bobAuth := virtualwebauthn.NewAuthenticator()
	bobCred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.enroll(t, bob, &bobAuth, bobCred)

	// Bob's assertion presented for Alice's account does not match any of
	// her registered credentials.
	bobCred.Counter++
	parsed := env.assertion(t, bob.Email, bobAuth, bobCred)
	_, _, err := env.svc.FinishLogin(ctx, alice.Email, parsed)
	assert.ErrorIs(t, err, ErrAuthenticatorNotRegistered)
}

func TestIntegration_LoginWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	_, err := env.svc.BeginLogin(ctx, user.Email)
	assert.ErrorIs(t, err, ErrNoCredentials)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	registered := env.enroll(t, user, &authenticator, credential)

	// After enrollment the options allow exactly the registered credential.
	options, err := env.svc.BeginLogin(ctx, user.Email)
	require.NoError(t, err)
	require.Len(t, options.Response.AllowedCredentials, 1)
	assert.Equal(t, protocol.URLEncodedBase64(registered.CredentialID), protocol.URLEncodedBase64(options.Response.AllowedCredentials[0].CredentialID))
}

func TestIntegration_UnknownUser(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)

	_, err := env.svc.BeginRegistration(ctx, []byte("missing"))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.svc.BeginLogin(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.svc.FinishRegistration(ctx, []byte("missing"), nil)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = env.svc.FinishLogin(ctx, "missing@example.com", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIntegration_NilResponses(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	_, err := env.svc.FinishRegistration(ctx, user.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.enroll(t, user, &authenticator, credential)

	_, _, err = env.svc.FinishLogin(ctx, user.Email, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestIntegration_StaleChallengeRejected(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.ChallengeTTL = 10 * time.Millisecond
	env := newCeremonyEnv(t, cfg)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	parsed := env.attest(t, user, authenticator, credential)

	time.Sleep(50 * time.Millisecond)

	_, err := env.svc.FinishRegistration(ctx, user.ID, parsed)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestIntegration_TamperedOriginFails(t *testing.T) {
	ctx := context.Background()
	env := newCeremonyEnv(t, nil)
	user := env.addUser("user-1", "u1@example.com", "u1")

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	options, err := env.svc.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)
	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	// Client data signed for a different origin.
	evil := virtualwebauthn.RelyingParty{Name: env.rp.Name, ID: env.rp.ID, Origin: "https://evil.example.org"}
	attestation := virtualwebauthn.CreateAttestationResponse(evil, authenticator, credential, *parsedOptions)
	parsed, err := parseAttestationResponse(attestation)
	require.NoError(t, err)

	_, err = env.svc.FinishRegistration(ctx, user.ID, parsed)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

// parseAttestationResponse parses a virtual authenticator attestation
// response into the form the browser API would deliver.
func parseAttestationResponse(attestation string) (*protocol.ParsedCredentialCreationData, error) {
	var ccr protocol.CredentialCreationResponse
	if err := json.Unmarshal([]byte(attestation), &ccr); err != nil {
		return nil, err
	}
	return ccr.Parse()
}

// parseAssertionResponse parses a virtual authenticator assertion response
// into the form the browser API would deliver.
func parseAssertionResponse(assertion string) (*protocol.ParsedCredentialAssertionData, error) {
	var car protocol.CredentialAssertionResponse
	if err := json.Unmarshal([]byte(assertion), &car); err != nil {
		return nil, err
	}
	return car.Parse()
}
