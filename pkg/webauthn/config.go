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
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

const (
	// MinChallengeSize is the smallest permitted challenge length in bytes.
	MinChallengeSize = 16

	// DefaultChallengeSize is the challenge length used when none is
	// configured.
	DefaultChallengeSize = 32

	// DefaultChallengeTTL bounds how long an issued challenge stays
	// verifiable.
	DefaultChallengeTTL = 5 * time.Minute

	// DefaultTimeout is the client-side ceremony timeout advertised in
	// credential options.
	DefaultTimeout = 60 * time.Second
)

// Config holds relying party identity and ceremony policy.
type Config struct {
	// RPDisplayName is the human-readable relying party name.
	RPDisplayName string `yaml:"rp_display_name" json:"rp_display_name" mapstructure:"rp_display_name"`

	// RPID is the relying party identifier, normally the effective domain.
	RPID string `yaml:"rp_id" json:"rp_id" mapstructure:"rp_id"`

	// RPOrigins are the origins permitted in client data.
	RPOrigins []string `yaml:"rp_origins" json:"rp_origins" mapstructure:"rp_origins"`

	// Timeout is the ceremony timeout advertised to clients.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// ChallengeSize is the random challenge length in bytes (minimum 16).
	ChallengeSize int `yaml:"challenge_size" json:"challenge_size" mapstructure:"challenge_size"`

	// ChallengeTTL bounds challenge age at verification time. Zero disables
	// the age check.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl" mapstructure:"challenge_ttl"`

	// AttestationPreference is the attestation conveyance preference
	// (none, indirect, direct).
	AttestationPreference string `yaml:"attestation_preference" json:"attestation_preference" mapstructure:"attestation_preference"`

	// AuthenticatorAttachment restricts registration to platform or
	// cross-platform authenticators. Empty allows both.
	AuthenticatorAttachment string `yaml:"authenticator_attachment" json:"authenticator_attachment" mapstructure:"authenticator_attachment"`

	// ResidentKey is the resident key requirement for registration
	// (discouraged, preferred, required).
	ResidentKey string `yaml:"resident_key" json:"resident_key" mapstructure:"resident_key"`

	// UserVerification is the user verification requirement advertised for
	// authentication ceremonies.
	UserVerification string `yaml:"user_verification" json:"user_verification" mapstructure:"user_verification"`

	// RegistrationUserVerification is the user verification requirement
	// enforced when verifying attestations.
	RegistrationUserVerification string `yaml:"registration_user_verification" json:"registration_user_verification" mapstructure:"registration_user_verification"`

	// Debug enables verbose ceremony logging.
	Debug bool `yaml:"debug" json:"debug" mapstructure:"debug"`
}

// SetDefaults fills in zero-valued fields with sane defaults.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ChallengeSize == 0 {
		c.ChallengeSize = DefaultChallengeSize
	}
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = DefaultChallengeTTL
	}
	if c.AttestationPreference == "" {
		c.AttestationPreference = string(protocol.PreferNoAttestation)
	}
	if c.AuthenticatorAttachment == "" {
		c.AuthenticatorAttachment = string(protocol.Platform)
	}
	if c.ResidentKey == "" {
		c.ResidentKey = string(protocol.ResidentKeyRequirementPreferred)
	}
	if c.UserVerification == "" {
		c.UserVerification = string(protocol.VerificationPreferred)
	}
	if c.RegistrationUserVerification == "" {
		c.RegistrationUserVerification = string(protocol.VerificationRequired)
	}
}

// Validate checks the configuration for completeness and consistency.
func (c *Config) Validate() error {
	if c.RPDisplayName == "" {
		return fmt.Errorf("%w: rp_display_name is required", ErrInvalidConfiguration)
	}
	if c.RPID == "" {
		return fmt.Errorf("%w: rp_id is required", ErrInvalidConfiguration)
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("%w: at least one rp_origin is required", ErrInvalidConfiguration)
	}
	if c.ChallengeSize < MinChallengeSize {
		return fmt.Errorf("%w: challenge_size must be at least %d bytes", ErrInvalidConfiguration, MinChallengeSize)
	}
	if c.ChallengeTTL < 0 {
		return fmt.Errorf("%w: challenge_ttl cannot be negative", ErrInvalidConfiguration)
	}
	for _, uv := range []string{c.UserVerification, c.RegistrationUserVerification} {
		switch protocol.UserVerificationRequirement(uv) {
		case protocol.VerificationRequired, protocol.VerificationPreferred, protocol.VerificationDiscouraged:
		default:
			return fmt.Errorf("%w: invalid user verification requirement %q", ErrInvalidConfiguration, uv)
		}
	}
	switch c.AuthenticatorAttachment {
	case "", string(protocol.Platform), string(protocol.CrossPlatform):
	default:
		return fmt.Errorf("%w: invalid authenticator_attachment %q", ErrInvalidConfiguration, c.AuthenticatorAttachment)
	}
	return nil
}

// toLibraryConfig converts the config into the verification library's form.
func (c *Config) toLibraryConfig() *webauthn.Config {
	return &webauthn.Config{
		RPDisplayName:         c.RPDisplayName,
		RPID:                  c.RPID,
		RPOrigins:             c.RPOrigins,
		AttestationPreference: protocol.ConveyancePreference(c.AttestationPreference),
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.AuthenticatorAttachment(c.AuthenticatorAttachment),
			ResidentKey:             protocol.ResidentKeyRequirement(c.ResidentKey),
			UserVerification:        protocol.UserVerificationRequirement(c.UserVerification),
		},
		Debug: c.Debug,
		Timeouts: webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce: true,
				Timeout: c.Timeout,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce: true,
				Timeout: c.Timeout,
			},
		},
	}
}

// loginUserVerification returns the requirement used for assertion sessions.
func (c *Config) loginUserVerification() protocol.UserVerificationRequirement {
	return protocol.UserVerificationRequirement(c.UserVerification)
}

// registrationUserVerification returns the requirement used for attestation
// sessions.
func (c *Config) registrationUserVerification() protocol.UserVerificationRequirement {
	return protocol.UserVerificationRequirement(c.RegistrationUserVerification)
}
