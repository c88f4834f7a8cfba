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

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		valid    bool
	}{
		{name: "valid", username: "alice42", valid: true},
		{name: "minimum length", username: "abc", valid: true},
		{name: "empty", username: ""},
		{name: "too short", username: "ab"},
		{name: "too long", username: strings.Repeat("a", 51)},
		{name: "spaces", username: "alice smith"},
		{name: "symbols", username: "alice!"},
		{name: "unicode", username: "ålice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "valid", email: "u1@example.com", valid: true},
		{name: "subdomain", email: "user@mail.example.co.uk", valid: true},
		{name: "empty", email: ""},
		{name: "no at", email: "example.com"},
		{name: "no domain dot", email: "user@localhost"},
		{name: "display name form", email: "User <user@example.com>"},
		{name: "too long", email: strings.Repeat("a", 250) + "@x.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correcthorse"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 256)))
}

func TestValidatePasswordConfirmation(t *testing.T) {
	assert.NoError(t, ValidatePasswordConfirmation("correcthorse", "correcthorse"))
	assert.Error(t, ValidatePasswordConfirmation("correcthorse", "wronghorse"))
	assert.Error(t, ValidatePasswordConfirmation("short", "short"))
}
