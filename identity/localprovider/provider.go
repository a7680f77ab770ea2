// Package localprovider is an in-process identity provider for development and tests.
// Passwords are bcrypt hashed and sessions are HMAC signed JWTs.
package localprovider

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-portal/identity"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/mailer"
	"github.com/rs/zerolog/log"
)

const (
	defaultSessionLifetime  = time.Hour
	recoverySessionLifetime = 15 * time.Minute
	recoveryCodeLifetime    = 30 * time.Minute
	confirmationLifetime    = 24 * time.Hour
	privilegedWindow        = 5 * time.Minute

	// maxRecoveryAttempts wrong codes burn a recovery reference.
	maxRecoveryAttempts = 5
)

type recovery struct {
	accountID string
	code      string
	expiresAt time.Time
	attempts  int
}

type Provider struct {
	accounts            AccountRepo
	signer              *hmacSigner
	revoked             *revokedSessions
	mailer              mailer.Mailer
	lifetime            time.Duration
	requireConfirmation bool
	now                 func() time.Time

	recoveries map[string]recovery
	// privileged maps session IDs that passed Reauthenticate to the end of their privilege.
	privileged map[string]time.Time
	mu         sync.Mutex
}

var (
	_ identity.Provider       = (*Provider)(nil)
	_ identity.EmailConfirmer = (*Provider)(nil)
)

type Option func(*Provider)

// WithNowTime overrides the clock used for token timestamps and expiry checks.
func WithNowTime(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

func WithMailer(m mailer.Mailer) Option {
	return func(p *Provider) {
		p.mailer = m
	}
}

func WithSessionLifetime(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.lifetime = d
		}
	}
}

// WithEmailConfirmation makes new accounts unverified. SignUp mails a confirmation link and the account
// cannot sign in until the link's token is passed to ConfirmEmail.
func WithEmailConfirmation(required bool) Option {
	return func(p *Provider) {
		p.requireConfirmation = required
	}
}

func New(signingKey []byte, opts ...Option) *Provider {
	p := &Provider{
		accounts:   newMemoryAccounts(),
		revoked:    newRevokedSessions(),
		mailer:     mailer.LogMailer{},
		lifetime:   defaultSessionLifetime,
		now:        time.Now,
		recoveries: make(map[string]recovery),
		privileged: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.signer = &hmacSigner{secret: signingKey, now: p.now}
	return p
}

func (p *Provider) Authenticate(_ context.Context, email, password string) (*identity.Session, error) {
	account, err := p.accounts.GetByEmail(email)
	if err != nil || !CheckPasswordHash(password, account.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !account.Verified {
		return nil, apperrors.ErrEmailUnconfirmed
	}

	account.LastLogin = p.now()
	if err := p.accounts.Update(account); err != nil {
		return nil, fmt.Errorf("[localprovider Authenticate] updating last login: %w", err)
	}
	return p.issueSession(account, "", p.lifetime)
}

func (p *Provider) SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.SignUpResult, error) {
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("[localprovider SignUp] hashing password: %w", err)
	}

	account := &Account{
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Verified:     !p.requireConfirmation,
		DateJoined:   p.now(),
	}
	if err := p.accounts.Create(account); err != nil {
		return nil, err
	}

	result := &identity.SignUpResult{Identity: toIdentity(account)}
	if p.requireConfirmation {
		token, err := p.signer.Sign(p.claims(account, purposeConfirmEmail, confirmationLifetime))
		if err != nil {
			return nil, fmt.Errorf("[localprovider SignUp] signing confirmation: %w", err)
		}
		link := req.ConfirmURL + "?" + url.Values{"token": {token}}.Encode()
		p.send(ctx, mailer.Message{
			To:      account.Email,
			Subject: "Confirm your email",
			Body:    fmt.Sprintf("Your account was created. Follow this link to confirm your email address:\n%s\n", link),
		})
		return result, nil
	}

	session, err := p.issueSession(account, "", p.lifetime)
	if err != nil {
		return nil, err
	}
	result.Session = session
	return result, nil
}

// ConfirmEmail verifies the account a confirmation token was issued for. Confirming twice is not an error.
func (p *Provider) ConfirmEmail(_ context.Context, token string) error {
	claims, err := p.signer.Parse(token)
	if err != nil || claims.Purpose != purposeConfirmEmail {
		return apperrors.ErrConfirmationInvalid
	}
	account, err := p.accounts.GetByID(claims.Subject)
	if err != nil || account.Email != claims.Email {
		return apperrors.ErrConfirmationInvalid
	}
	if account.Verified {
		return nil
	}
	account.Verified = true
	return p.accounts.Update(account)
}

func (p *Provider) InvalidateSession(_ context.Context, token string) error {
	claims, err := p.signer.Parse(token)
	if err != nil {
		return apperrors.ErrSessionNotFound
	}
	p.revoked.Add(claims.ID, claims.ExpiresAt.Time)
	p.revoked.Cleanup(p.now())
	return nil
}

func (p *Provider) LookupSession(_ context.Context, token string) (*identity.Session, error) {
	_, session, err := p.resolve(token)
	return session, err
}

func (p *Provider) RefreshSession(_ context.Context, token string) (*identity.Session, error) {
	account, current, err := p.resolve(token)
	if err != nil {
		return nil, err
	}
	if current.Recovery {
		// Recovery sessions are not extended.
		return current, nil
	}
	return p.issueSession(account, "", p.lifetime)
}

// Reauthenticate checks password against the session's account and, on success, lets the session
// change credentials for a few minutes.
func (p *Provider) Reauthenticate(_ context.Context, token, password string) error {
	account, session, err := p.resolve(token)
	if err != nil {
		return err
	}
	if !CheckPasswordHash(password, account.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}

	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, until := range p.privileged {
		if !now.Before(until) {
			delete(p.privileged, id)
		}
	}
	p.privileged[session.ID] = now.Add(privilegedWindow)
	return nil
}

// UpdateCredential accepts recovery sessions and sessions that passed Reauthenticate within the
// privileged window. The privilege is used up by the change.
func (p *Provider) UpdateCredential(_ context.Context, token, newPassword string) error {
	account, session, err := p.resolve(token)
	if err != nil {
		return err
	}
	if !session.Recovery && !p.takePrivilege(session.ID) {
		return apperrors.ErrReauthenticationRequired
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("[localprovider UpdateCredential] hashing password: %w", err)
	}
	account.PasswordHash = hash
	return p.accounts.Update(account)
}

func (p *Provider) RequestRecovery(ctx context.Context, req identity.RecoveryRequest) (string, error) {
	reference := uuid.New().String()

	account, err := p.accounts.GetByEmail(req.Email)
	if err != nil {
		log.Debug().Str("email", req.Email).Msg("recovery requested for unknown email")
		return reference, nil
	}

	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("[localprovider RequestRecovery] generating code: %w", err)
	}

	p.mu.Lock()
	p.recoveries[reference] = recovery{accountID: account.ID, code: code, expiresAt: p.now().Add(recoveryCodeLifetime)}
	p.mu.Unlock()

	link := req.ReturnURL + "?" + url.Values{"ref": {reference}, "code": {code}}.Encode()
	p.send(ctx, mailer.Message{
		To:      account.Email,
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Your recovery code is %s.\n\nOr follow this link to choose a new password:\n%s\n", code, link),
	})
	return reference, nil
}

// ExchangeRecovery trades a code for a recovery session. Each wrong code counts against the reference
// and maxRecoveryAttempts of them burn it, so the correct code no longer works either.
func (p *Provider) ExchangeRecovery(_ context.Context, proof identity.RecoveryProof) (*identity.Session, error) {
	p.mu.Lock()
	rec, ok := p.recoveries[proof.Reference]
	valid := ok && p.now().Before(rec.expiresAt) && subtle.ConstantTimeCompare([]byte(rec.code), []byte(proof.Code)) == 1
	switch {
	case !ok:
	case valid || !p.now().Before(rec.expiresAt):
		delete(p.recoveries, proof.Reference)
	default:
		rec.attempts++
		if rec.attempts >= maxRecoveryAttempts {
			log.Info().Str("account", rec.accountID).Msg("recovery reference burned after repeated wrong codes")
			delete(p.recoveries, proof.Reference)
		} else {
			p.recoveries[proof.Reference] = rec
		}
	}
	p.mu.Unlock()

	if !valid {
		return nil, apperrors.ErrRecoveryExpired
	}

	account, err := p.accounts.GetByID(rec.accountID)
	if err != nil {
		return nil, apperrors.ErrRecoveryExpired
	}
	return p.issueSession(account, purposeRecovery, recoverySessionLifetime)
}

func (p *Provider) Ping(context.Context) error {
	return nil
}

func (p *Provider) resolve(token string) (*Account, *identity.Session, error) {
	claims, err := p.signer.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, apperrors.ErrSessionExpired
		}
		return nil, nil, apperrors.ErrSessionNotFound
	}
	if claims.Purpose == purposeConfirmEmail || p.revoked.IsRevoked(claims.ID) {
		return nil, nil, apperrors.ErrSessionNotFound
	}
	account, err := p.accounts.GetByID(claims.Subject)
	if err != nil {
		return nil, nil, apperrors.ErrSessionNotFound
	}
	return account, &identity.Session{
		Token:      token,
		ID:         claims.ID,
		IdentityID: account.ID,
		Email:      account.Email,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
		Recovery:   claims.Purpose == purposeRecovery,
	}, nil
}

// takePrivilege reports whether sessionID passed Reauthenticate recently and forgets that it did.
func (p *Provider) takePrivilege(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	until, ok := p.privileged[sessionID]
	delete(p.privileged, sessionID)
	return ok && p.now().Before(until)
}

func (p *Provider) claims(account *Account, purpose string, lifetime time.Duration) sessionClaims {
	now := p.now()
	return sessionClaims{
		Email:   account.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
}

func (p *Provider) issueSession(account *Account, purpose string, lifetime time.Duration) (*identity.Session, error) {
	claims := p.claims(account, purpose, lifetime)
	token, err := p.signer.Sign(claims)
	if err != nil {
		return nil, err
	}
	return &identity.Session{
		Token:      token,
		ID:         claims.ID,
		IdentityID: account.ID,
		Email:      account.Email,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
		Recovery:   purpose == purposeRecovery,
	}, nil
}

func (p *Provider) send(ctx context.Context, msg mailer.Message) {
	if err := p.mailer.Send(ctx, msg); err != nil {
		log.Err(err).Str("to", msg.To).Msg("failed to send email")
	}
}

func toIdentity(a *Account) identity.Identity {
	return identity.Identity{
		ID:        a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		Phone:     a.Phone,
		Verified:  a.Verified,
		CreatedAt: a.DateJoined,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
