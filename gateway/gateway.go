// Package gateway is the portal's single entry point to the identity provider and the profile store.
// It converts provider failures into AuthError, ValidationError and TransientError, keeps a short lived
// cache of resolved sessions and publishes auth state changes to subscribers.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jrsteele09/go-tenant-portal/identity"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/metrics"
	"github.com/jrsteele09/go-tenant-portal/internal/retry"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

// Paths the provider's emails lead to, relative to BASE_URL.
const (
	PasswordResetPath = "/auth/password-reset/update"
	EmailConfirmPath  = "/auth/confirm"
)

const (
	msgUpdatePasswordFailed = "Could not update password. The link may have expired"
	msgResetLinkInvalid     = "This reset link is invalid or has expired. Request a new one"
	msgDuplicateEmail       = "An account with this email already exists"
	msgWrongPassword        = "Current password is incorrect"
	msgReauthenticate       = "Confirm your current password to change it"
)

type Gateway struct {
	provider   identity.Provider
	profiles   profiles.Repo
	sessions   *expirable.LRU[string, identity.Session]
	policy     retry.Policy
	resetURL   string
	confirmURL string
	now        func() time.Time

	subMu       sync.RWMutex
	subscribers []func(Event)
}

type Option func(*Gateway)

func WithNowTime(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(g *Gateway) {
		g.policy = p
	}
}

// WithSessionCache sizes the resolved session cache. A zero ttl disables caching.
func WithSessionCache(size int, ttl time.Duration) Option {
	return func(g *Gateway) {
		if ttl <= 0 {
			g.sessions = nil
			return
		}
		g.sessions = expirable.NewLRU[string, identity.Session](size, nil, ttl)
	}
}

// New builds a gateway. baseURL is the public origin used to build password reset links.
func New(provider identity.Provider, profileRepo profiles.Repo, baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		provider:   provider,
		profiles:   profileRepo,
		sessions:   expirable.NewLRU[string, identity.Session](1024, nil, 30*time.Second),
		policy:     retry.Default(),
		resetURL:   baseURL + PasswordResetPath,
		confirmURL: baseURL + EmailConfirmPath,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetSession resolves token to a live session. It never fails: an unknown token, an expired session or an
// unreachable provider all yield nil.
func (g *Gateway) GetSession(ctx context.Context, token string) *identity.Session {
	if token == "" {
		return nil
	}
	if s, ok := g.cachedSession(token); ok {
		metrics.CacheLookups.WithLabelValues("session", "fresh").Inc()
		return s
	}
	metrics.CacheLookups.WithLabelValues("session", "miss").Inc()

	s, err := retry.Value(ctx, g.policy, "gateway.GetSession", func(ctx context.Context) (*identity.Session, error) {
		return g.provider.LookupSession(ctx, token)
	})
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrSessionNotFound) && !apperrors.Is(err, apperrors.ErrSessionExpired) {
			log.Warn().Err(err).Msg("session lookup failed")
		}
		return nil
	}
	if s.Expired(g.now()) {
		return nil
	}
	g.cacheSession(*s)
	return s
}

func (g *Gateway) cachedSession(token string) (*identity.Session, bool) {
	if g.sessions == nil {
		return nil, false
	}
	s, ok := g.sessions.Get(token)
	if !ok || s.Expired(g.now()) {
		return nil, false
	}
	return &s, true
}

func (g *Gateway) cacheSession(s identity.Session) {
	if g.sessions != nil && s.Token != "" {
		g.sessions.Add(s.Token, s)
	}
}

func (g *Gateway) evictSession(token string) {
	if g.sessions != nil {
		g.sessions.Remove(token)
	}
}

// Login authenticates and returns the new session. Every failure is an *AuthError.
func (g *Gateway) Login(ctx context.Context, email, password string) (*identity.Session, error) {
	s, err := retry.Value(ctx, g.policy, "gateway.Login", func(ctx context.Context) (*identity.Session, error) {
		return g.provider.Authenticate(ctx, email, password)
	})
	if err != nil {
		return nil, g.authError("login", err)
	}
	g.cacheSession(*s)
	g.publish(Event{Kind: SignedIn, IdentityID: s.IdentityID})
	return s, nil
}

// Logout invalidates the session at the provider and drops every local trace of it. An already
// invalid session is not an error.
func (g *Gateway) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	identityID := g.identityOf(ctx, token)
	g.evictSession(token)

	err := g.policy.Do(ctx, "gateway.Logout", func(ctx context.Context) error {
		return g.provider.InvalidateSession(ctx, token)
	})
	g.publish(Event{Kind: SignedOut, IdentityID: identityID})

	if err != nil && !apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return apperrors.Wrapf(err, "[Gateway Logout] invalidate session")
	}
	return nil
}

// RefreshSession extends token. The caller must replace its cookie with the returned token.
func (g *Gateway) RefreshSession(ctx context.Context, token string) (*identity.Session, error) {
	s, err := retry.Value(ctx, g.policy, "gateway.RefreshSession", func(ctx context.Context) (*identity.Session, error) {
		return g.provider.RefreshSession(ctx, token)
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Gateway RefreshSession] refresh")
	}
	if s.Token != token {
		g.evictSession(token)
	}
	g.cacheSession(*s)
	g.publish(Event{Kind: SessionRefreshed, IdentityID: s.IdentityID})
	return s, nil
}

// SignUp creates an identity. It is attempted once: a retried create could report the first attempt's
// identity as a duplicate. A taken email comes back as a ValidationError on the email field.
func (g *Gateway) SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.SignUpResult, error) {
	once := g.policy
	once.Attempts = 1

	if req.ConfirmURL == "" {
		req.ConfirmURL = g.confirmURL
	}
	result, err := retry.Value(ctx, once, "gateway.SignUp", func(ctx context.Context) (*identity.SignUpResult, error) {
		return g.provider.SignUp(ctx, req)
	})
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrDuplicateIdentity):
		metrics.AuthFailures.WithLabelValues("signup", "duplicate").Inc()
		return nil, validation.FieldErr("email", msgDuplicateEmail)
	default:
		return nil, g.authError("signup", err)
	}

	if result.Session != nil {
		g.cacheSession(*result.Session)
		g.publish(Event{Kind: SignedIn, IdentityID: result.Identity.ID})
	}
	return result, nil
}

// RequestPasswordReset asks the provider to email a recovery link and returns the recovery reference.
// Unknown emails succeed silently.
func (g *Gateway) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	ref, err := retry.Value(ctx, g.policy, "gateway.RequestPasswordReset", func(ctx context.Context) (string, error) {
		return g.provider.RequestRecovery(ctx, identity.RecoveryRequest{Email: email, ReturnURL: g.resetURL})
	})
	if err != nil {
		return "", apperrors.Wrapf(err, "[Gateway RequestPasswordReset] request recovery")
	}
	return ref, nil
}

// ExchangeRecovery trades the emailed proof for a session that may set a new password.
func (g *Gateway) ExchangeRecovery(ctx context.Context, reference, code string) (*identity.Session, error) {
	s, err := retry.Value(ctx, g.policy, "gateway.ExchangeRecovery", func(ctx context.Context) (*identity.Session, error) {
		return g.provider.ExchangeRecovery(ctx, identity.RecoveryProof{Reference: reference, Code: code})
	})
	if err != nil {
		authErr := g.authError("recovery", err)
		if !isTransient(err) {
			authErr.Kind = apperrors.AuthRecoveryInvalid
			authErr.Message = msgResetLinkInvalid
		}
		return nil, authErr
	}
	g.cacheSession(*s)
	return s, nil
}

// UpdatePassword sets a new password for the holder of a recovery session. Other sessions must go
// through ChangePassword.
func (g *Gateway) UpdatePassword(ctx context.Context, token, newPassword string) error {
	err := g.policy.Do(ctx, "gateway.UpdatePassword", func(ctx context.Context) error {
		return g.provider.UpdateCredential(ctx, token, newPassword)
	})
	if err != nil {
		authErr := g.authError("update_password", err)
		switch {
		case apperrors.Is(err, apperrors.ErrReauthenticationRequired):
			authErr.Message = msgReauthenticate
		case !isTransient(err):
			authErr.Message = msgUpdatePasswordFailed
		}
		return authErr
	}
	g.publish(Event{Kind: PasswordUpdated, IdentityID: g.identityOf(ctx, token)})
	return nil
}

// ConfirmEmail passes an emailed confirmation token to the provider. Providers that confirm
// addresses on their own return ErrUnsupported.
func (g *Gateway) ConfirmEmail(ctx context.Context, token string) error {
	confirmer, ok := g.provider.(identity.EmailConfirmer)
	if !ok {
		return apperrors.ErrUnsupported
	}
	if token == "" {
		return apperrors.ErrConfirmationInvalid
	}
	err := g.policy.Do(ctx, "gateway.ConfirmEmail", func(ctx context.Context) error {
		return confirmer.ConfirmEmail(ctx, token)
	})
	if err != nil {
		return apperrors.Wrapf(err, "[Gateway ConfirmEmail] confirm")
	}
	return nil
}

// ChangePassword proves knowledge of current through the provider and then sets next.
// A wrong current password is reported on the currentPassword field.
func (g *Gateway) ChangePassword(ctx context.Context, token, current, next string) error {
	err := g.policy.Do(ctx, "gateway.Reauthenticate", func(ctx context.Context) error {
		return g.provider.Reauthenticate(ctx, token, current)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			metrics.AuthFailures.WithLabelValues("change_password", string(apperrors.AuthInvalidCredentials)).Inc()
			return validation.FieldErr("currentPassword", msgWrongPassword)
		}
		return g.authError("change_password", err)
	}
	return g.UpdatePassword(ctx, token, next)
}

// GetProfile loads the profile row of identityID.
func (g *Gateway) GetProfile(ctx context.Context, identityID string) (*profiles.Profile, error) {
	if identityID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	return retry.Value(ctx, g.policy, "gateway.GetProfile", func(ctx context.Context) (*profiles.Profile, error) {
		return g.profiles.Get(ctx, identityID)
	})
}

// Ping checks the provider is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.provider.Ping(ctx)
}

// identityOf names the holder of token, asking the provider when the session is not cached.
func (g *Gateway) identityOf(ctx context.Context, token string) string {
	if s, ok := g.cachedSession(token); ok {
		return s.IdentityID
	}
	s, err := g.provider.LookupSession(ctx, token)
	if err != nil {
		log.Debug().Err(err).Msg("could not resolve session owner")
		return ""
	}
	return s.IdentityID
}

func (g *Gateway) authError(op string, err error) *apperrors.AuthError {
	var authErr *apperrors.AuthError
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		authErr = apperrors.NewAuthError(apperrors.AuthInvalidCredentials, err)
	case apperrors.Is(err, apperrors.ErrEmailUnconfirmed):
		authErr = apperrors.NewAuthError(apperrors.AuthEmailUnconfirmed, err)
	case apperrors.Is(err, apperrors.ErrRecoveryExpired):
		authErr = apperrors.NewAuthError(apperrors.AuthRecoveryInvalid, err)
	case apperrors.Is(err, apperrors.ErrSessionNotFound), apperrors.Is(err, apperrors.ErrSessionExpired),
		apperrors.Is(err, apperrors.ErrReauthenticationRequired):
		authErr = apperrors.NewAuthError(apperrors.AuthSessionExpired, err)
	default:
		authErr = apperrors.NewAuthError(apperrors.AuthUnknown, err)
		var transient *apperrors.TransientError
		if apperrors.As(err, &transient) {
			authErr.Message = transient.Message()
		} else {
			log.Err(err).Str("operation", op).Msg("unexpected identity provider error")
		}
	}
	if authErr.Kind != apperrors.AuthUnknown {
		log.Debug().Err(err).Str("operation", op).Str("kind", string(authErr.Kind)).Msg("identity provider rejected request")
	}
	metrics.AuthFailures.WithLabelValues(op, string(authErr.Kind)).Inc()
	return authErr
}

func isTransient(err error) bool {
	var transient *apperrors.TransientError
	return apperrors.As(err, &transient)
}
