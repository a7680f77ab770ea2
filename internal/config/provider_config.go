package config

import (
	"strconv"
	"time"
)

const (
	IdentityProviderLocal  = "local"
	IdentityProviderKratos = "kratos"

	defaultLocalSigningKey = "dev-session-signing-key-change-me"
)

type ProviderConfig interface {
	GetIdentityProvider() string
	GetKratosPublicURL() string
	GetKratosAdminURL() string
	GetLocalSigningKey() []byte
	GetLocalSessionLifetime() time.Duration
	GetLocalRequireEmailConfirmation() bool
	GetProviderTimeout() time.Duration
	GetProviderAttempts() int
}

type Provider struct {
	settings
}

var _ ProviderConfig = Provider{}

func (p Provider) GetIdentityProvider() string {
	return p.get("IDENTITY_PROVIDER", IdentityProviderLocal)
}

func (p Provider) GetKratosPublicURL() string {
	return p.get("KRATOS_PUBLIC_URL", "http://localhost:4433")
}

func (p Provider) GetKratosAdminURL() string {
	return p.get("KRATOS_ADMIN_URL", "http://localhost:4434")
}

func (p Provider) GetLocalSigningKey() []byte {
	return []byte(p.get("LOCAL_SIGNING_KEY", defaultLocalSigningKey))
}

func (p Provider) GetLocalSessionLifetime() time.Duration {
	return p.duration("LOCAL_SESSION_LIFETIME", time.Hour)
}

func (p Provider) GetLocalRequireEmailConfirmation() bool {
	required, _ := strconv.ParseBool(p.get("LOCAL_REQUIRE_EMAIL_CONFIRMATION", "false"))
	return required
}

// GetProviderTimeout is the per-attempt timeout applied to identity provider and store calls.
func (p Provider) GetProviderTimeout() time.Duration {
	return p.duration("PROVIDER_TIMEOUT", 5*time.Second)
}

// GetProviderAttempts counts the first call, so 2 means one retry.
func (p Provider) GetProviderAttempts() int {
	attempts, err := strconv.Atoi(p.get("PROVIDER_ATTEMPTS", "2"))
	if err != nil || attempts < 1 {
		return 2
	}
	return attempts
}
