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

	"github.com/google/uuid"
)

// Repository persists account records. SQL implementations are expected to
// enforce the unique email constraint at the schema level.
type Repository interface {
	// Create stores a new user. Returns ErrEmailTaken when the email is
	// already registered.
	Create(ctx context.Context, user *User) error

	// FindByID returns the user with the given id, or ErrUserNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail returns the user with the given email, or
	// ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByVerificationToken returns the user holding the given email
	// verification token, or ErrUserNotFound.
	FindByVerificationToken(ctx context.Context, token string) (*User, error)

	// FindByResetToken returns the user holding the given password reset
	// token, or ErrUserNotFound.
	FindByResetToken(ctx context.Context, token string) (*User, error)

	// Update replaces the stored record for the user's id. Returns
	// ErrUserNotFound when the user does not exist and ErrEmailTaken when
	// the email now collides with another account.
	Update(ctx context.Context, user *User) error
}

// MemoryRepository is an in-memory Repository for development and tests.
// Safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create stores a new user.
func (r *MemoryRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return ErrEmailTaken
	}
	r.byID[user.ID] = user.Clone()
	r.byEmail[user.Email] = user.ID
	return nil
}

// FindByID looks up a user by id.
func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

// FindByEmail looks up a user by email.
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.byID[id].Clone(), nil
}

// FindByVerificationToken looks up a user by its live verification token.
func (r *MemoryRepository) FindByVerificationToken(_ context.Context, token string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token == "" {
		return nil, ErrUserNotFound
	}
	for _, user := range r.byID {
		if user.VerificationToken == token {
			return user.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByResetToken looks up a user by its live password reset token.
func (r *MemoryRepository) FindByResetToken(_ context.Context, token string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token == "" {
		return nil, ErrUserNotFound
	}
	for _, user := range r.byID {
		if user.ResetToken == token {
			return user.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

// Update replaces the stored record for the user's id.
func (r *MemoryRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if other, taken := r.byEmail[user.Email]; taken && other != user.ID {
		return ErrEmailTaken
	}
	if current.Email != user.Email {
		delete(r.byEmail, current.Email)
		r.byEmail[user.Email] = user.ID
	}
	r.byID[user.ID] = user.Clone()
	return nil
}
