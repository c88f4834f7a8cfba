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
	"crypto/rand"
	"time"
)

// ChallengeManager mints and consumes single-use ceremony challenges. Each
// Issue replaces the user's live challenge, so only the most recently issued
// challenge can verify.
type ChallengeManager struct {
	store ChallengeStore
	size  int
}

// NewChallengeManager creates a manager over the given store. Sizes below
// the minimum fall back to the default.
func NewChallengeManager(store ChallengeStore, size int) *ChallengeManager {
	if size < MinChallengeSize {
		size = DefaultChallengeSize
	}
	return &ChallengeManager{store: store, size: size}
}

// Issue mints a fresh random challenge for the user and persists it,
// overwriting any previously issued challenge.
func (m *ChallengeManager) Issue(ctx context.Context, userID []byte) (*Challenge, error) {
	value := make([]byte, m.size)
	if _, err := rand.Read(value); err != nil {
		return nil, WrapError("generate challenge", err)
	}
	challenge := &Challenge{
		UserID:    append([]byte(nil), userID...),
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Put(ctx, challenge); err != nil {
		return nil, WrapError("store challenge", err)
	}
	return challenge, nil
}

// Consume atomically takes the user's live challenge out of the store.
// Returns ErrChallengeNotFound when none exists; concurrent consumers race
// for a single winner.
func (m *ChallengeManager) Consume(ctx context.Context, userID []byte) (*Challenge, error) {
	challenge, err := m.store.Consume(ctx, userID)
	if err != nil {
		return nil, WrapError("consume challenge", err)
	}
	return challenge, nil
}
