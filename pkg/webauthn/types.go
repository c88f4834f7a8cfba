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
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// DeviceType classifies the authenticator attachment modality.
type DeviceType string

const (
	// DevicePlatform is a built-in authenticator (Touch ID, Windows Hello).
	DevicePlatform DeviceType = "platform"

	// DeviceCrossPlatform is a roaming authenticator (security key).
	DeviceCrossPlatform DeviceType = "cross-platform"
)

// User is the minimal account view the ceremonies need. The identity layer
// implements it on its user model.
type User interface {
	// WebAuthnID returns the stable binary user handle.
	WebAuthnID() []byte

	// WebAuthnName returns the login name shown by authenticator UIs.
	WebAuthnName() string

	// WebAuthnDisplayName returns the human-friendly display name.
	WebAuthnDisplayName() string
}

// Authenticator is a registered WebAuthn credential. The credential id is
// globally unique across all users. Authenticators are never deleted by the
// ceremony services.
type Authenticator struct {
	// CredentialID is the authenticator-assigned credential identifier.
	CredentialID []byte `json:"credential_id"`

	// UserID is the binary handle of the owning user.
	UserID []byte `json:"user_id"`

	// PublicKey is the COSE-encoded credential public key.
	PublicKey []byte `json:"public_key"`

	// AttestationType records how the credential attested at registration.
	AttestationType string `json:"attestation_type,omitempty"`

	// Transports are the transport hints reported by the client.
	Transports []string `json:"transports,omitempty"`

	// DeviceType records the attachment modality observed at registration.
	DeviceType DeviceType `json:"device_type"`

	// BackupEligible indicates the credential may be synced across devices.
	BackupEligible bool `json:"backup_eligible"`

	// BackupState indicates the credential is currently backed up.
	BackupState bool `json:"backup_state"`

	// SignCount is the last accepted signature counter value.
	SignCount uint32 `json:"sign_count"`

	// AAGUID identifies the authenticator model.
	AAGUID []byte `json:"aaguid,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// Clone returns a deep copy of the authenticator.
func (a *Authenticator) Clone() *Authenticator {
	dup := *a
	dup.CredentialID = append([]byte(nil), a.CredentialID...)
	dup.UserID = append([]byte(nil), a.UserID...)
	dup.PublicKey = append([]byte(nil), a.PublicKey...)
	dup.AAGUID = append([]byte(nil), a.AAGUID...)
	dup.Transports = append([]string(nil), a.Transports...)
	return &dup
}

// descriptor converts the authenticator into a credential descriptor for
// excludeCredentials / allowCredentials lists.
func (a *Authenticator) descriptor() protocol.CredentialDescriptor {
	transports := make([]protocol.AuthenticatorTransport, 0, len(a.Transports))
	for _, t := range a.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return protocol.CredentialDescriptor{
		Type:         protocol.PublicKeyCredentialType,
		CredentialID: a.CredentialID,
		Transport:    transports,
	}
}

// libraryCredential converts the stored authenticator into the verification
// library's credential form for signature checks.
func (a *Authenticator) libraryCredential() webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(a.Transports))
	for _, t := range a.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:              a.CredentialID,
		PublicKey:       a.PublicKey,
		AttestationType: a.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			BackupEligible: a.BackupEligible,
			BackupState:    a.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    a.AAGUID,
			SignCount: a.SignCount,
		},
	}
}

// newAuthenticator builds an Authenticator from a freshly verified
// registration credential.
func newAuthenticator(userID []byte, cred *webauthn.Credential) *Authenticator {
	deviceType := DeviceCrossPlatform
	if cred.Authenticator.Attachment == protocol.Platform {
		deviceType = DevicePlatform
	}
	transports := make([]string, 0, len(cred.Transport))
	for _, t := range cred.Transport {
		transports = append(transports, string(t))
	}
	return &Authenticator{
		CredentialID:    append([]byte(nil), cred.ID...),
		UserID:          append([]byte(nil), userID...),
		PublicKey:       append([]byte(nil), cred.PublicKey...),
		AttestationType: cred.AttestationType,
		Transports:      transports,
		DeviceType:      deviceType,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
		SignCount:       cred.Authenticator.SignCount,
		AAGUID:          append([]byte(nil), cred.Authenticator.AAGUID...),
		CreatedAt:       time.Now().UTC(),
	}
}

// Challenge is a single-use random value binding one ceremony round trip to
// one user. At most one challenge is live per user at any time.
type Challenge struct {
	// UserID is the binary handle of the user the challenge was issued to.
	UserID []byte `json:"user_id"`

	// Value is the raw random challenge bytes.
	Value []byte `json:"value"`

	// CreatedAt is when the challenge was minted. Staleness is enforced at
	// verification time against the configured TTL.
	CreatedAt time.Time `json:"created_at"`
}
