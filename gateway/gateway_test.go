package gateway_test

import (
	"context"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-portal/gateway"
	"github.com/jrsteele09/go-tenant-portal/identity"
	"github.com/jrsteele09/go-tenant-portal/identity/localprovider"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/mailer"
	"github.com/jrsteele09/go-tenant-portal/internal/retry"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	profilerepofake "github.com/jrsteele09/go-tenant-portal/profiles/repofake"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL  = "http://localhost:8080"
	testEmail    = "ada@example.com"
	testPassword = "s3cretpass"
	testName     = "Ada Lovelace"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testFixture struct {
	provider *localprovider.Provider
	profiles *profilerepofake.FakeProfileRepo
	mail     *recordingMailer
	gateway  *gateway.Gateway
	events   []gateway.Event
}

func fastRetry() retry.Policy {
	p := retry.Default()
	p.Backoff = 0
	return p
}

func setupTestFixture(t *testing.T, providerOpts ...localprovider.Option) *testFixture {
	t.Helper()
	f := &testFixture{
		profiles: profilerepofake.NewFakeProfileRepo(),
		mail:     &recordingMailer{},
	}
	providerOpts = append([]localprovider.Option{localprovider.WithMailer(f.mail)}, providerOpts...)
	f.provider = localprovider.New([]byte("gateway-test-key"), providerOpts...)
	f.gateway = gateway.New(f.provider, f.profiles, testBaseURL, gateway.WithRetryPolicy(fastRetry()))
	f.gateway.Subscribe(func(e gateway.Event) {
		f.events = append(f.events, e)
	})
	return f
}

func (f *testFixture) signUp(t *testing.T) *identity.SignUpResult {
	t.Helper()
	result, err := f.gateway.SignUp(context.Background(), identity.SignUpRequest{
		Email:    testEmail,
		Password: testPassword,
		FullName: testName,
	})
	require.NoError(t, err)
	return result
}

func (f *testFixture) eventKinds() []gateway.EventKind {
	kinds := make([]gateway.EventKind, 0, len(f.events))
	for _, e := range f.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func requireAuthError(t *testing.T, err error, kind apperrors.AuthErrorKind) *apperrors.AuthError {
	t.Helper()
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, kind, authErr.Kind)
	return authErr
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("empty and unknown tokens", func(t *testing.T) {
		f := setupTestFixture(t)
		require.Nil(t, f.gateway.GetSession(ctx, ""))
		require.Nil(t, f.gateway.GetSession(ctx, "not-a-token"))
	})

	t.Run("repeat lookups agree", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signUp(t)
		session, err := f.gateway.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		first := f.gateway.GetSession(ctx, session.Token)
		second := f.gateway.GetSession(ctx, session.Token)
		require.NotNil(t, first)
		require.Equal(t, first, second)
		require.Equal(t, session.IdentityID, first.IdentityID)
	})

	t.Run("provider outage yields nil", func(t *testing.T) {
		stub := &stubProvider{lookupErr: apperrors.Transient("whoami", context.DeadlineExceeded)}
		g := gateway.New(stub, profilerepofake.NewFakeProfileRepo(), testBaseURL, gateway.WithRetryPolicy(fastRetry()))

		require.Nil(t, g.GetSession(ctx, "token"))
		require.Equal(t, 2, stub.lookups)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success publishes sign in", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signUp(t)

		session, err := f.gateway.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)
		require.NotEmpty(t, session.Token)
		require.Contains(t, f.eventKinds(), gateway.SignedIn)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signUp(t)

		_, err := f.gateway.Login(ctx, testEmail, "wrong-password")
		authErr := requireAuthError(t, err, apperrors.AuthInvalidCredentials)
		require.Equal(t, "Incorrect email or password", authErr.Message)
	})

	t.Run("unconfirmed email", func(t *testing.T) {
		f := setupTestFixture(t, localprovider.WithEmailConfirmation(true))
		result := f.signUp(t)
		require.Nil(t, result.Session)

		_, err := f.gateway.Login(ctx, testEmail, testPassword)
		requireAuthError(t, err, apperrors.AuthEmailUnconfirmed)
	})

	t.Run("transient failure is retried once", func(t *testing.T) {
		stub := &stubProvider{authErrs: []error{apperrors.Transient("login", context.DeadlineExceeded)}}
		g := gateway.New(stub, profilerepofake.NewFakeProfileRepo(), testBaseURL, gateway.WithRetryPolicy(fastRetry()))

		session, err := g.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)
		require.Equal(t, "stub-token", session.Token)
		require.Equal(t, 2, stub.authCalls)
	})

	t.Run("persistent outage", func(t *testing.T) {
		outage := apperrors.Transient("login", context.DeadlineExceeded)
		stub := &stubProvider{authErrs: []error{outage, outage, outage}}
		g := gateway.New(stub, profilerepofake.NewFakeProfileRepo(), testBaseURL, gateway.WithRetryPolicy(fastRetry()))

		_, err := g.Login(ctx, testEmail, testPassword)
		authErr := requireAuthError(t, err, apperrors.AuthUnknown)
		require.Equal(t, (&apperrors.TransientError{}).Message(), authErr.Message)
		require.Equal(t, 2, stub.authCalls)
	})

	t.Run("rejections are not retried", func(t *testing.T) {
		stub := &stubProvider{authErrs: []error{apperrors.ErrInvalidCredentials}}
		g := gateway.New(stub, profilerepofake.NewFakeProfileRepo(), testBaseURL, gateway.WithRetryPolicy(fastRetry()))

		_, err := g.Login(ctx, testEmail, testPassword)
		requireAuthError(t, err, apperrors.AuthInvalidCredentials)
		require.Equal(t, 1, stub.authCalls)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.signUp(t)

	session, err := f.gateway.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.NotNil(t, f.gateway.GetSession(ctx, session.Token))

	require.NoError(t, f.gateway.Logout(ctx, session.Token))
	require.Nil(t, f.gateway.GetSession(ctx, session.Token))
	require.Equal(t, gateway.SignedOut, f.events[len(f.events)-1].Kind)
	require.Equal(t, session.IdentityID, f.events[len(f.events)-1].IdentityID)

	// A second logout of the same session is harmless.
	require.NoError(t, f.gateway.Logout(ctx, session.Token))

	t.Run("uncached session still names its owner", func(t *testing.T) {
		f := setupTestFixture(t)
		f.gateway = gateway.New(f.provider, f.profiles, testBaseURL,
			gateway.WithRetryPolicy(fastRetry()), gateway.WithSessionCache(0, 0))
		f.gateway.Subscribe(func(e gateway.Event) {
			f.events = append(f.events, e)
		})
		result := f.signUp(t)

		require.NoError(t, f.gateway.Logout(ctx, result.Session.Token))
		last := f.events[len(f.events)-1]
		require.Equal(t, gateway.SignedOut, last.Kind)
		require.Equal(t, result.Identity.ID, last.IdentityID)
	})
}

func TestSignUpDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.signUp(t)

	_, err := f.gateway.SignUp(context.Background(), identity.SignUpRequest{Email: testEmail, Password: testPassword})
	var validationErr *validation.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.NotEmpty(t, validationErr.Get("email"))
}

func TestRefreshSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)
	f := setupTestFixture(t, localprovider.WithNowTime(func() time.Time { return now }))
	f.signUp(t)

	session, err := f.gateway.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	refreshed, err := f.gateway.RefreshSession(ctx, session.Token)
	require.NoError(t, err)
	require.True(t, refreshed.ExpiresAt.After(session.ExpiresAt))
	require.Contains(t, f.eventKinds(), gateway.SessionRefreshed)

	_, err = f.gateway.RefreshSession(ctx, "garbage")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.signUp(t)
	session, err := f.gateway.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := f.gateway.ChangePassword(ctx, session.Token, "not-it", "brand-new-pass")
		var validationErr *validation.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Equal(t, "Current password is incorrect", validationErr.Get("currentPassword"))
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, f.gateway.ChangePassword(ctx, session.Token, testPassword, "brand-new-pass"))
		require.Contains(t, f.eventKinds(), gateway.PasswordUpdated)

		_, err := f.gateway.Login(ctx, testEmail, testPassword)
		requireAuthError(t, err, apperrors.AuthInvalidCredentials)
		_, err = f.gateway.Login(ctx, testEmail, "brand-new-pass")
		require.NoError(t, err)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.signUp(t)

	ref, err := f.gateway.RequestPasswordReset(ctx, testEmail)
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	link := regexp.MustCompile(`http\S+`).FindString(f.mail.last().Body)
	require.NotEmpty(t, link)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, gateway.PasswordResetPath, parsed.Path)
	require.Equal(t, ref, parsed.Query().Get("ref"))
	code := parsed.Query().Get("code")

	t.Run("wrong code", func(t *testing.T) {
		_, err := f.gateway.ExchangeRecovery(ctx, ref, "000000x")
		authErr := requireAuthError(t, err, apperrors.AuthRecoveryInvalid)
		require.Contains(t, authErr.Message, "expired")
	})

	// The wrong code above consumed nothing: exchange still works once.
	t.Run("exchange and update", func(t *testing.T) {
		recovery, err := f.gateway.ExchangeRecovery(ctx, ref, code)
		require.NoError(t, err)

		require.NoError(t, f.gateway.UpdatePassword(ctx, recovery.Token, "reset-password-1"))
		_, err = f.gateway.Login(ctx, testEmail, "reset-password-1")
		require.NoError(t, err)

		_, err = f.gateway.ExchangeRecovery(ctx, ref, code)
		requireAuthError(t, err, apperrors.AuthRecoveryInvalid)
	})

	t.Run("update with dead session", func(t *testing.T) {
		err := f.gateway.UpdatePassword(ctx, "expired-token", "reset-password-2")
		authErr := requireAuthError(t, err, apperrors.AuthSessionExpired)
		require.Equal(t, "Could not update password. The link may have expired", authErr.Message)
	})

	t.Run("update with an ordinary session", func(t *testing.T) {
		session, err := f.gateway.Login(ctx, testEmail, "reset-password-1")
		require.NoError(t, err)

		err = f.gateway.UpdatePassword(ctx, session.Token, "reset-password-2")
		authErr := requireAuthError(t, err, apperrors.AuthSessionExpired)
		require.ErrorIs(t, err, apperrors.ErrReauthenticationRequired)
		require.Equal(t, "Confirm your current password to change it", authErr.Message)

		_, err = f.gateway.Login(ctx, testEmail, "reset-password-1")
		require.NoError(t, err)
	})

	t.Run("unknown email still succeeds", func(t *testing.T) {
		ref, err := f.gateway.RequestPasswordReset(ctx, "nobody@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, ref)
	})
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.gateway.GetProfile(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = f.gateway.GetProfile(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrProfileNotFound)

	require.NoError(t, f.profiles.Create(ctx, &profiles.Profile{ID: "id-1", FullName: testName}))
	p, err := f.gateway.GetProfile(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, testName, p.FullName)
}

func TestConfirmEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("link leads to the portal", func(t *testing.T) {
		f := setupTestFixture(t, localprovider.WithEmailConfirmation(true))
		result := f.signUp(t)
		require.Nil(t, result.Session)

		link, err := url.Parse(regexp.MustCompile(`http\S+`).FindString(f.mail.last().Body))
		require.NoError(t, err)
		require.Equal(t, gateway.EmailConfirmPath, link.Path)

		require.ErrorIs(t, f.gateway.ConfirmEmail(ctx, ""), apperrors.ErrConfirmationInvalid)
		require.ErrorIs(t, f.gateway.ConfirmEmail(ctx, "forged"), apperrors.ErrConfirmationInvalid)
		require.NoError(t, f.gateway.ConfirmEmail(ctx, link.Query().Get("token")))

		_, err = f.gateway.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)
	})

	t.Run("provider with its own verification", func(t *testing.T) {
		g := gateway.New(&stubProvider{}, profilerepofake.NewFakeProfileRepo(), testBaseURL)
		require.ErrorIs(t, g.ConfirmEmail(ctx, "token"), apperrors.ErrUnsupported)
	})
}

// stubProvider scripts the provider calls a test needs; the embedded nil interface panics on anything else.
type stubProvider struct {
	identity.Provider

	mu        sync.Mutex
	authErrs  []error
	authCalls int
	lookupErr error
	lookups   int
}

func (s *stubProvider) Authenticate(context.Context, string, string) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authCalls++
	if len(s.authErrs) > 0 {
		err := s.authErrs[0]
		s.authErrs = s.authErrs[1:]
		return nil, err
	}
	return &identity.Session{Token: "stub-token", IdentityID: "stub-id", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubProvider) LookupSession(context.Context, string) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	return nil, s.lookupErr
}
