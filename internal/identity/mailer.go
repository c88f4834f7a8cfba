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
	"log/slog"
)

// Mailer delivers account emails. Delivery is an external collaborator;
// the service treats failures as non-fatal and logs them.
type Mailer interface {
	// SendVerification delivers the email verification token.
	SendVerification(ctx context.Context, user *User, token string) error

	// SendPasswordReset delivers the password reset token.
	SendPasswordReset(ctx context.Context, user *User, token string) error
}

// LogMailer writes account emails to the log instead of delivering them.
// Used in development and as the default when no mailer is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// SendVerification logs the verification token.
func (m *LogMailer) SendVerification(_ context.Context, user *User, token string) error {
	m.logger.Info("email verification requested",
		"email", user.Email,
		"token", token)
	return nil
}

// SendPasswordReset logs the reset token.
func (m *LogMailer) SendPasswordReset(_ context.Context, user *User, token string) error {
	m.logger.Info("password reset requested",
		"email", user.Email,
		"token", token)
	return nil
}
