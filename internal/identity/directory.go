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
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-authd/pkg/webauthn"
)

// Directory adapts the account repository to the ceremony layer's
// UserDirectory contract, translating binary user handles and error kinds.
type Directory struct {
	repo Repository
}

// NewDirectory creates a directory over the given repository.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// FindByID resolves a binary user handle to an account.
func (d *Directory) FindByID(ctx context.Context, userID []byte) (webauthn.User, error) {
	id, err := uuid.FromBytes(userID)
	if err != nil {
		return nil, webauthn.ErrUserNotFound
	}
	user, err := d.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return user, nil
}

// FindByEmail resolves an email address to an account.
func (d *Directory) FindByEmail(ctx context.Context, email string) (webauthn.User, error) {
	user, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return user, nil
}

// SetPasskeyEnabled flags the account as owning at least one authenticator.
func (d *Directory) SetPasskeyEnabled(ctx context.Context, userID []byte) error {
	id, err := uuid.FromBytes(userID)
	if err != nil {
		return webauthn.ErrUserNotFound
	}
	user, err := d.repo.FindByID(ctx, id)
	if err != nil {
		return translateNotFound(err)
	}
	if user.PasskeyEnabled {
		return nil
	}
	user.PasskeyEnabled = true
	user.UpdatedAt = time.Now().UTC()
	if err := d.repo.Update(ctx, user); err != nil {
		return translateNotFound(err)
	}
	return nil
}

func translateNotFound(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return webauthn.ErrUserNotFound
	}
	return err
}
