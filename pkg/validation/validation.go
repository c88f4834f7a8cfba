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

// Package validation provides centralized input validation for account
// fields. The identity service funnels all registration and credential
// input through these checks before touching the user store.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

const (
	// MinUsernameLength is the shortest accepted username.
	MinUsernameLength = 3

	// MaxUsernameLength is the longest accepted username.
	MaxUsernameLength = 50

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8

	// MaxPasswordLength is the longest accepted password. Bounded so the
	// hashing cost stays predictable.
	MaxPasswordLength = 255

	// MaxEmailLength is the longest accepted email address.
	MaxEmailLength = 254
)

// usernamePattern matches alphanumeric usernames.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateUsername validates an account username.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return fmt.Errorf("username too short (min %d characters)", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("username too long (max %d characters)", MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (allowed: a-z, A-Z, 0-9)")
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email too long (max %d characters)", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email address is not valid")
	}
	// mail.ParseAddress accepts local addresses without a domain dot.
	if !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fmt.Errorf("email address is not valid")
	}
	return nil
}

// ValidatePassword validates a password against the length policy.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password too short (min %d characters)", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password too long (max %d characters)", MaxPasswordLength)
	}
	return nil
}

// ValidatePasswordConfirmation validates a password and its confirmation
// pair.
func ValidatePasswordConfirmation(password, confirm string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}
	return nil
}
