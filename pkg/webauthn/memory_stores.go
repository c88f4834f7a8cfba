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
	"encoding/hex"
	"sync"
	"time"
)

// MemoryCredentialStore is an in-memory CredentialStore for development and
// tests. Safe for concurrent use.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	byID   map[string]*Authenticator
	byUser map[string][]string
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:   make(map[string]*Authenticator),
		byUser: make(map[string][]string),
	}
}

// Insert stores a new authenticator. The credential id must be unique
// across all users.
func (s *MemoryCredentialStore) Insert(_ context.Context, authenticator *Authenticator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	credKey := hex.EncodeToString(authenticator.CredentialID)
	if _, exists := s.byID[credKey]; exists {
		return ErrDuplicateCredential
	}
	userKey := hex.EncodeToString(authenticator.UserID)
	s.byID[credKey] = authenticator.Clone()
	s.byUser[userKey] = append(s.byUser[userKey], credKey)
	return nil
}

// FindByUser returns copies of the user's authenticators in registration
// order.
func (s *MemoryCredentialStore) FindByUser(_ context.Context, userID []byte) ([]*Authenticator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.byUser[hex.EncodeToString(userID)]
	authenticators := make([]*Authenticator, 0, len(keys))
	for _, key := range keys {
		if a, ok := s.byID[key]; ok {
			authenticators = append(authenticators, a.Clone())
		}
	}
	return authenticators, nil
}

// FindByCredentialID returns a copy of the authenticator with the given
// credential id.
func (s *MemoryCredentialStore) FindByCredentialID(_ context.Context, credentialID []byte) (*Authenticator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return nil, ErrAuthenticatorNotRegistered
	}
	return a.Clone(), nil
}

// UpdateCounter advances the signature counter under the store lock. The
// compare-and-set only applies a strictly greater value (or zero over
// zero), so racing updates cannot move the counter backwards.
func (s *MemoryCredentialStore) UpdateCounter(_ context.Context, credentialID []byte, signCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return ErrAuthenticatorNotRegistered
	}
	if signCount < a.SignCount || (signCount == a.SignCount && signCount != 0) {
		return ErrCounterRegressed
	}
	a.SignCount = signCount
	a.LastUsedAt = time.Now().UTC()
	return nil
}

// Count returns the number of stored authenticators.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// MemoryChallengeStore is an in-memory ChallengeStore holding at most one
// live challenge per user. Safe for concurrent use.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

// NewMemoryChallengeStore creates an empty in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]*Challenge),
	}
}

// Put stores the challenge, replacing any live challenge for the user.
func (s *MemoryChallengeStore) Put(_ context.Context, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[hex.EncodeToString(challenge.UserID)] = challenge
	return nil
}

// Consume removes and returns the user's live challenge. The read and the
// delete happen under one lock acquisition, so concurrent consumers yield
// exactly one winner.
func (s *MemoryChallengeStore) Consume(_ context.Context, userID []byte) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(userID)
	challenge, ok := s.challenges[key]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.challenges, key)
	return challenge, nil
}

// DirectoryUser is a minimal User implementation for the in-memory
// directory.
type DirectoryUser struct {
	ID             []byte
	Email          string
	Username       string
	PasskeyEnabled bool
}

func (u *DirectoryUser) WebAuthnID() []byte          { return u.ID }
func (u *DirectoryUser) WebAuthnName() string        { return u.Username }
func (u *DirectoryUser) WebAuthnDisplayName() string { return u.Username }

// MemoryUserDirectory is an in-memory UserDirectory for development and
// tests.
type MemoryUserDirectory struct {
	mu      sync.RWMutex
	byID    map[string]*DirectoryUser
	byEmail map[string]*DirectoryUser
}

// NewMemoryUserDirectory creates an empty in-memory user directory.
func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{
		byID:    make(map[string]*DirectoryUser),
		byEmail: make(map[string]*DirectoryUser),
	}
}

// Add registers a user in the directory, replacing any existing entry with
// the same id or email.
func (d *MemoryUserDirectory) Add(user *DirectoryUser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[hex.EncodeToString(user.ID)] = user
	d.byEmail[user.Email] = user
}

// FindByID looks up a user by its binary handle.
func (d *MemoryUserDirectory) FindByID(_ context.Context, userID []byte) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.byID[hex.EncodeToString(userID)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindByEmail looks up a user by email.
func (d *MemoryUserDirectory) FindByEmail(_ context.Context, email string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetPasskeyEnabled marks the user as owning at least one authenticator.
func (d *MemoryUserDirectory) SetPasskeyEnabled(_ context.Context, userID []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.byID[hex.EncodeToString(userID)]
	if !ok {
		return ErrUserNotFound
	}
	user.PasskeyEnabled = true
	return nil
}
