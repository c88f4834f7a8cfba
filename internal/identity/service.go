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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeremyhahn/go-authd/pkg/validation"
)

// DefaultResetTokenTTL bounds how long a password reset token stays valid.
const DefaultResetTokenTTL = 3 * time.Minute

// Service implements the account lifecycle over a Repository.
type Service struct {
	repo       Repository
	mailer     Mailer
	logger     *slog.Logger
	resetTTL   time.Duration
	bcryptCost int
}

// ServiceParams holds the dependencies for creating a Service.
type ServiceParams struct {
	// Repository persists accounts. Required.
	Repository Repository

	// Mailer delivers account emails. Defaults to a log-only mailer.
	Mailer Mailer

	// Logger receives service logs. Defaults to slog.Default().
	Logger *slog.Logger

	// ResetTokenTTL bounds reset token validity. Defaults to 3 minutes.
	ResetTokenTTL time.Duration

	// BcryptCost is the password hashing cost. Defaults to
	// bcrypt.DefaultCost.
	BcryptCost int
}

// NewService creates an identity service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("identity: repository is required")
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mailer := params.Mailer
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	resetTTL := params.ResetTokenTTL
	if resetTTL == 0 {
		resetTTL = DefaultResetTokenTTL
	}
	cost := params.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       params.Repository,
		mailer:     mailer,
		logger:     logger,
		resetTTL:   resetTTL,
		bcryptCost: cost,
	}, nil
}

// Register creates a new account and sends the email verification token.
// Mail delivery failures are logged, not returned; the resend endpoint
// covers them.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		ID:                uuid.New(),
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerification(ctx, user, token); err != nil {
		s.logger.Error("verification email delivery failed",
			"email", user.Email,
			"error", err)
	}

	s.logger.Info("account registered", "username", username)
	return user, nil
}

// VerifyEmail flips the verified flag for the account holding the token.
// The token is single use.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*User, error) {
	user, err := s.repo.FindByVerificationToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user.EmailVerified = true
	user.VerificationToken = ""
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("email verified", "username", user.Username)
	return user, nil
}

// ResendVerification mints a fresh verification token and sends it.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	token, err := newToken()
	if err != nil {
		return err
	}
	user.VerificationToken = token
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	return s.mailer.SendVerification(ctx, user, token)
}

// SignIn authenticates an email and password pair. Unknown emails and
// wrong passwords return the same error.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.logger.Info("password sign-in", "username", user.Username)
	return user, nil
}

// RequestPasswordReset mints a short-lived reset token and sends it.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := newToken()
	if err != nil {
		return err
	}
	user.ResetToken = token
	user.ResetTokenExpires = time.Now().UTC().Add(s.resetTTL)
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, user, token)
}

// ResetPassword consumes a reset token and replaces the password. The new
// password must differ from the current one.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	user, err := s.repo.FindByResetToken(ctx, token)
	if err != nil {
		return ErrInvalidToken
	}
	if time.Now().After(user.ResetTokenExpires) {
		return ErrInvalidToken
	}
	if err := validation.ValidatePasswordConfirmation(password, confirm); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) == nil {
		return ErrPasswordReuse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExpires = time.Time{}
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("password reset", "username", user.Username)
	return nil
}

// Get returns the account for a binary user handle.
func (s *Service) Get(ctx context.Context, userID []byte) (*User, error) {
	id, err := uuid.FromBytes(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// GetByEmail returns the account for an email address.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// newToken mints a 32-byte random token in hex form.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("identity: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
