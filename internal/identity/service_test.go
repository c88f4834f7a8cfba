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

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// captureMailer records sent tokens for assertions.
type captureMailer struct {
	mu                 sync.Mutex
	verificationTokens []string
	resetTokens        []string
}

func (m *captureMailer) SendVerification(_ context.Context, _ *User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationTokens = append(m.verificationTokens, token)
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _ *User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *captureMailer) lastReset() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *captureMailer) {
	t.Helper()
	repo := NewMemoryRepository()
	mailer := &captureMailer{}
	svc, err := NewService(ServiceParams{
		Repository: repo,
		Mailer:     mailer,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return svc, repo, mailer
}

func TestNewService_RequiresRepository(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)

	user, err := svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.EmailVerified)
	assert.False(t, user.PasskeyEnabled)
	assert.NotEmpty(t, user.VerificationToken)
	require.Len(t, mailer.verificationTokens, 1)
	assert.Equal(t, user.VerificationToken, mailer.verificationTokens[0])

	// The password hash verifies and the plaintext is not stored.
	assert.NoError(t, bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("correcthorse")))
	assert.NotContains(t, string(user.PasswordHash), "correcthorse")
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice2", "alice@example.com", "otherhorse42")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{name: "bad username", username: "a!", email: "a@example.com", password: "correcthorse"},
		{name: "bad email", username: "alice", email: "nope", password: "correcthorse"},
		{name: "short password", username: "alice", email: "a@example.com", password: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestService_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	user, err := svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)

	verified, err := svc.VerifyEmail(ctx, user.VerificationToken)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.Empty(t, stored.VerificationToken)

	// The token is single use.
	_, err = svc.VerifyEmail(ctx, user.VerificationToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyEmail(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ResendVerification(t *testing.T) {
	ctx := context.Background()
	svc, repo, mailer := newTestService(t)

	user, err := svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)

	require.NoError(t, svc.ResendVerification(ctx, user.Email))
	require.Len(t, mailer.verificationTokens, 2)
	assert.NotEqual(t, mailer.verificationTokens[0], mailer.verificationTokens[1],
		"resend must mint a fresh token")

	// The original token no longer verifies.
	_, err = svc.VerifyEmail(ctx, mailer.verificationTokens[0])
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.VerifyEmail(ctx, mailer.verificationTokens[1])
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResendVerification(ctx, user.Email), ErrAlreadyVerified)
	assert.ErrorIs(t, svc.ResendVerification(ctx, "missing@example.com"), ErrUserNotFound)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
}

func TestService_SignIn(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)

	user, err := svc.SignIn(ctx, "alice@example.com", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// Unknown email and wrong password are indistinguishable.
	_, err = svc.SignIn(ctx, "missing@example.com", "correcthorse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "alice@example.com", "wronghorse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "alice@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	token := mailer.lastReset()
	require.NotEmpty(t, token)

	// New password must differ from the old one.
	err = svc.ResetPassword(ctx, token, "correcthorse", "correcthorse")
	assert.ErrorIs(t, err, ErrPasswordReuse)

	// Confirmation must match.
	err = svc.ResetPassword(ctx, token, "freshhorse99", "otherhorse99")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.ResetPassword(ctx, token, "freshhorse99", "freshhorse99"))

	// The token is single use.
	err = svc.ResetPassword(ctx, token, "anotherhorse", "anotherhorse")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.SignIn(ctx, "alice@example.com", "correcthorse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "alice@example.com", "freshhorse99")
	assert.NoError(t, err)
}

func TestService_PasswordResetExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	mailer := &captureMailer{}
	svc, err := NewService(ServiceParams{
		Repository:    repo,
		Mailer:        mailer,
		BcryptCost:    bcrypt.MinCost,
		ResetTokenTTL: -time.Minute,
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))

	err = svc.ResetPassword(ctx, mailer.lastReset(), "freshhorse99", "freshhorse99")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_PasswordResetUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	assert.ErrorIs(t, svc.RequestPasswordReset(ctx, "missing@example.com"), ErrUserNotFound)
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	user, err := svc.Register(ctx, "alice", "alice@example.com", "correcthorse")
	require.NoError(t, err)

	found, err := svc.Get(ctx, user.WebAuthnID())
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = svc.Get(ctx, []byte("not-a-uuid"))
	assert.ErrorIs(t, err, ErrUserNotFound)

	byEmail, err := svc.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}
