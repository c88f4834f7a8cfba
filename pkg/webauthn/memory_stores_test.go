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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthenticator(credentialID, userID []byte) *Authenticator {
	return &Authenticator{
		CredentialID: credentialID,
		UserID:       userID,
		PublicKey:    []byte("public-key"),
		DeviceType:   DeviceCrossPlatform,
	}
}

func TestMemoryCredentialStore_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	auth := testAuthenticator([]byte{0xAA, 0x01}, []byte("user-1"))
	require.NoError(t, store.Insert(ctx, auth))

	found, err := store.FindByCredentialID(ctx, []byte{0xAA, 0x01})
	require.NoError(t, err)
	assert.Equal(t, auth.CredentialID, found.CredentialID)
	assert.Equal(t, auth.UserID, found.UserID)

	list, err := store.FindByUser(ctx, []byte("user-1"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, auth.CredentialID, list[0].CredentialID)
	assert.Equal(t, 1, store.Count())
}

func TestMemoryCredentialStore_DuplicateAcrossUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	require.NoError(t, store.Insert(ctx, testAuthenticator([]byte{0xAA, 0x01}, []byte("user-1"))))

	// The same credential id is rejected even for a different user.
	err := store.Insert(ctx, testAuthenticator([]byte{0xAA, 0x01}, []byte("user-2")))
	assert.ErrorIs(t, err, ErrDuplicateCredential)
	assert.Equal(t, 1, store.Count())
}

func TestMemoryCredentialStore_FindByUserEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	list, err := store.FindByUser(ctx, []byte("nobody"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryCredentialStore_FindUnknownCredential(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	_, err := store.FindByCredentialID(ctx, []byte{0xFF})
	assert.ErrorIs(t, err, ErrAuthenticatorNotRegistered)
}

func TestMemoryCredentialStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	require.NoError(t, store.Insert(ctx, testAuthenticator([]byte{0xAA, 0x01}, []byte("user-1"))))

	found, err := store.FindByCredentialID(ctx, []byte{0xAA, 0x01})
	require.NoError(t, err)
	found.SignCount = 99

	again, err := store.FindByCredentialID(ctx, []byte{0xAA, 0x01})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), again.SignCount, "caller mutation must not reach the store")
}

func TestMemoryCredentialStore_UpdateCounter(t *testing.T) {
	tests := []struct {
		name      string
		stored    uint32
		update    uint32
		wantErr   error
		wantCount uint32
	}{
		{name: "advance", stored: 1, update: 2, wantCount: 2},
		{name: "large jump", stored: 1, update: 100, wantCount: 100},
		{name: "both zero allowed", stored: 0, update: 0, wantCount: 0},
		{name: "equal non-zero regresses", stored: 5, update: 5, wantErr: ErrCounterRegressed, wantCount: 5},
		{name: "lower regresses", stored: 5, update: 4, wantErr: ErrCounterRegressed, wantCount: 5},
		{name: "zero over non-zero regresses", stored: 5, update: 0, wantErr: ErrCounterRegressed, wantCount: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := NewMemoryCredentialStore()
			auth := testAuthenticator([]byte{0x01}, []byte("user-1"))
			auth.SignCount = tt.stored
			require.NoError(t, store.Insert(ctx, auth))

			err := store.UpdateCounter(ctx, []byte{0x01}, tt.update)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			found, ferr := store.FindByCredentialID(ctx, []byte{0x01})
			require.NoError(t, ferr)
			assert.Equal(t, tt.wantCount, found.SignCount)
		})
	}
}

func TestMemoryCredentialStore_UpdateCounterUnknownCredential(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	err := store.UpdateCounter(ctx, []byte{0xFF}, 1)
	assert.ErrorIs(t, err, ErrAuthenticatorNotRegistered)
}

func TestMemoryCredentialStore_ConcurrentCounterNeverRegresses(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	require.NoError(t, store.Insert(ctx, testAuthenticator([]byte{0x01}, []byte("user-1"))))

	var wg sync.WaitGroup
	for i := uint32(1); i <= 50; i++ {
		wg.Add(1)
		go func(count uint32) {
			defer wg.Done()
			// Losing updates report a regression; the stored value only
			// ever moves forward.
			_ = store.UpdateCounter(ctx, []byte{0x01}, count)
		}(i)
	}
	wg.Wait()

	found, err := store.FindByCredentialID(ctx, []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, uint32(50), found.SignCount)
}

func TestMemoryChallengeStore_PutAndConsume(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	challenge := &Challenge{UserID: []byte("user-1"), Value: []byte("random")}
	require.NoError(t, store.Put(ctx, challenge))

	consumed, err := store.Consume(ctx, []byte("user-1"))
	require.NoError(t, err)
	assert.Equal(t, challenge.Value, consumed.Value)

	_, err = store.Consume(ctx, []byte("user-1"))
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryChallengeStore_ConsumeUnknownUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	_, err := store.Consume(ctx, []byte("nobody"))
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryUserDirectory(t *testing.T) {
	ctx := context.Background()
	directory := NewMemoryUserDirectory()
	user := &DirectoryUser{
		ID:       []byte("user-1"),
		Email:    "u1@example.com",
		Username: "u1",
	}
	directory.Add(user)

	byID, err := directory.FindByID(ctx, []byte("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", byID.WebAuthnName())

	byEmail, err := directory.FindByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.WebAuthnID())

	_, err = directory.FindByID(ctx, []byte("missing"))
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = directory.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, directory.SetPasskeyEnabled(ctx, []byte("user-1")))
	assert.True(t, user.PasskeyEnabled)
	assert.ErrorIs(t, directory.SetPasskeyEnabled(ctx, []byte("missing")), ErrUserNotFound)
}
