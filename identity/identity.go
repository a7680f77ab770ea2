// Package identity defines what the portal needs from an identity provider. Sessions are opaque:
// the portal never looks inside a session token, it only asks the provider about it.
package identity

import (
	"context"
	"time"
)

// Identity is an authenticated principal as the provider knows it.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a provider issued session. Token is what the browser carries in the session cookie.
type Session struct {
	Token      string    `json:"-"`
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	// Recovery is set on sessions obtained by exchanging a recovery code.
	Recovery bool `json:"recovery,omitempty"`
}

// ExpiresWithin reports whether the session ends within d of now.
func (s *Session) ExpiresWithin(d time.Duration, now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Sub(now) <= d
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SignUpRequest creates an identity. ConfirmURL is where an email confirmation link must lead when the
// provider asks new identities to confirm their address.
type SignUpRequest struct {
	Email      string
	Password   string
	FullName   string
	Phone      string
	ConfirmURL string
}

// SignUpResult carries a session only when the provider signs new identities in immediately.
type SignUpResult struct {
	Identity Identity
	Session  *Session
}

// RecoveryRequest starts a password recovery. ReturnURL is where the emailed link must lead.
type RecoveryRequest struct {
	Email     string
	ReturnURL string
}

// RecoveryProof is what the emailed link carries back: the recovery reference and its secret code.
type RecoveryProof struct {
	Reference string
	Code      string
}

// Provider is the capability set the portal consumes. Implementations return the sentinel errors of
// internal/errors for rejections and wrap network level failures as TransientError.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error)
	InvalidateSession(ctx context.Context, token string) error
	LookupSession(ctx context.Context, token string) (*Session, error)
	// RefreshSession extends a session. The returned token may differ from the one passed in.
	RefreshSession(ctx context.Context, token string) (*Session, error)
	// Reauthenticate proves the session holder knows password, without creating a new session.
	Reauthenticate(ctx context.Context, token, password string) error
	// UpdateCredential sets a new password. The session must be a recovery session or have passed
	// Reauthenticate recently, otherwise ErrReauthenticationRequired is returned.
	UpdateCredential(ctx context.Context, token, newPassword string) error
	// RequestRecovery sends a recovery code and returns the reference the code must be presented with.
	// It succeeds for unknown emails so it never reveals which accounts exist.
	RequestRecovery(ctx context.Context, req RecoveryRequest) (string, error)
	// ExchangeRecovery trades a valid proof for a short lived session allowed to set a new password.
	ExchangeRecovery(ctx context.Context, proof RecoveryProof) (*Session, error)
	Ping(ctx context.Context) error
}

// EmailConfirmer is implemented by providers that confirm email addresses through a link the portal
// serves. Providers that run their own verification flow do not implement it.
type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, token string) error
}
