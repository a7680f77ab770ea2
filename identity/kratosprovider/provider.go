// Package kratosprovider implements identity.Provider on top of Ory Kratos native (API) flows.
package kratosprovider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-tenant-portal/identity"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	kratos "github.com/ory/kratos-client-go"
	"github.com/rs/zerolog/log"
)

const passwordMethod = "password"

type Provider struct {
	public *kratos.APIClient
	admin  *kratos.APIClient
}

var _ identity.Provider = (*Provider)(nil)

// New creates clients for the public and admin Kratos APIs.
func New(publicURL, adminURL string, timeout time.Duration) *Provider {
	return &Provider{
		public: newAPIClient(publicURL, timeout),
		admin:  newAPIClient(adminURL, timeout),
	}
}

func newAPIClient(baseURL string, timeout time.Duration) *kratos.APIClient {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{
			URL: baseURL,
		},
	}
	configuration.HTTPClient = &http.Client{
		Timeout: timeout,
	}
	return kratos.NewAPIClient(configuration)
}

func (p *Provider) Authenticate(ctx context.Context, email, password string) (*identity.Session, error) {
	flow, resp, err := p.public.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, classify("create_login_flow", err, resp)
	}

	body := kratos.UpdateLoginFlowWithPasswordMethod{
		Identifier: email,
		Password:   password,
		Method:     passwordMethod,
	}
	result, resp, err := p.public.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&body)).
		Execute()
	if err != nil {
		return nil, classify("update_login_flow", err, resp)
	}

	return toSession(&result.Session, result.GetSessionToken()), nil
}

func (p *Provider) SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.SignUpResult, error) {
	flow, resp, err := p.public.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, classify("create_registration_flow", err, resp)
	}

	traits := map[string]interface{}{
		"email":     req.Email,
		"full_name": req.FullName,
	}
	if req.Phone != "" {
		traits["phone"] = req.Phone
	}
	body := kratos.UpdateRegistrationFlowWithPasswordMethod{
		Method:   passwordMethod,
		Password: req.Password,
		Traits:   traits,
	}
	result, resp, err := p.public.FrontendAPI.UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&body)).
		Execute()
	if err != nil {
		return nil, classify("update_registration_flow", err, resp)
	}

	out := &identity.SignUpResult{Identity: toIdentity(&result.Identity)}
	if result.Session != nil && result.SessionToken != nil {
		out.Session = toSession(result.Session, *result.SessionToken)
	}
	return out, nil
}

func (p *Provider) InvalidateSession(ctx context.Context, token string) error {
	resp, err := p.public.FrontendAPI.PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(token)).
		Execute()
	if err != nil {
		return classify("logout", err, resp)
	}
	return nil
}

func (p *Provider) LookupSession(ctx context.Context, token string) (*identity.Session, error) {
	session, resp, err := p.public.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		return nil, classifySession("whoami", err, resp)
	}
	if session.Active != nil && !*session.Active {
		return nil, apperrors.ErrSessionExpired
	}
	if session.Identity == nil {
		return nil, fmt.Errorf("[kratos LookupSession] missing identity in session %s", session.Id)
	}
	return toSession(session, token), nil
}

// RefreshSession extends the session through the admin API. Kratos keeps the token, only the expiry moves.
func (p *Provider) RefreshSession(ctx context.Context, token string) (*identity.Session, error) {
	current, err := p.LookupSession(ctx, token)
	if err != nil {
		return nil, err
	}
	extended, resp, err := p.admin.IdentityAPI.ExtendSession(ctx, current.ID).Execute()
	if err != nil {
		return nil, classifySession("extend_session", err, resp)
	}
	if extended == nil {
		return p.LookupSession(ctx, token)
	}
	return toSession(extended, token), nil
}

// Reauthenticate runs a refresh login flow bound to the existing session.
func (p *Provider) Reauthenticate(ctx context.Context, token, password string) error {
	current, err := p.LookupSession(ctx, token)
	if err != nil {
		return err
	}

	flow, resp, err := p.public.FrontendAPI.CreateNativeLoginFlow(ctx).Refresh(true).XSessionToken(token).Execute()
	if err != nil {
		return classify("create_refresh_flow", err, resp)
	}

	body := kratos.UpdateLoginFlowWithPasswordMethod{
		Identifier: current.Email,
		Password:   password,
		Method:     passwordMethod,
	}
	_, resp, err = p.public.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		XSessionToken(token).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&body)).
		Execute()
	if err != nil {
		return classify("update_refresh_flow", err, resp)
	}
	return nil
}

func (p *Provider) UpdateCredential(ctx context.Context, token, newPassword string) error {
	flow, resp, err := p.public.FrontendAPI.CreateNativeSettingsFlow(ctx).XSessionToken(token).Execute()
	if err != nil {
		return classifySession("create_settings_flow", err, resp)
	}

	body := kratos.UpdateSettingsFlowWithPasswordMethod{
		Method:   passwordMethod,
		Password: newPassword,
	}
	_, resp, err = p.public.FrontendAPI.UpdateSettingsFlow(ctx).
		Flow(flow.Id).
		XSessionToken(token).
		UpdateSettingsFlowBody(kratos.UpdateSettingsFlowWithPasswordMethodAsUpdateSettingsFlowBody(&body)).
		Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			// Kratos answers session_refresh_required when the session is not privileged.
			return apperrors.ErrReauthenticationRequired
		}
		return classifySession("update_settings_flow", err, resp)
	}
	return nil
}

// RequestRecovery starts a code based recovery flow. Kratos emails the code; the flow ID is the reference.
func (p *Provider) RequestRecovery(ctx context.Context, req identity.RecoveryRequest) (string, error) {
	flow, resp, err := p.public.FrontendAPI.CreateNativeRecoveryFlow(ctx).Execute()
	if err != nil {
		return "", classify("create_recovery_flow", err, resp)
	}

	email := req.Email
	body := kratos.UpdateRecoveryFlowWithCodeMethod{
		Method: "code",
		Email:  &email,
	}
	_, resp, err = p.public.FrontendAPI.UpdateRecoveryFlow(ctx).
		Flow(flow.Id).
		UpdateRecoveryFlowBody(kratos.UpdateRecoveryFlowWithCodeMethodAsUpdateRecoveryFlowBody(&body)).
		Execute()
	if err != nil {
		return "", classify("send_recovery_code", err, resp)
	}
	return flow.Id, nil
}

func (p *Provider) ExchangeRecovery(ctx context.Context, proof identity.RecoveryProof) (*identity.Session, error) {
	code := proof.Code
	body := kratos.UpdateRecoveryFlowWithCodeMethod{
		Method: "code",
		Code:   &code,
	}
	flow, resp, err := p.public.FrontendAPI.UpdateRecoveryFlow(ctx).
		Flow(proof.Reference).
		UpdateRecoveryFlowBody(kratos.UpdateRecoveryFlowWithCodeMethodAsUpdateRecoveryFlowBody(&body)).
		Execute()
	if err != nil {
		mapped := classify("submit_recovery_code", err, resp)
		if isTransient(mapped) {
			return nil, mapped
		}
		log.Debug().Err(mapped).Msg("recovery code rejected")
		return nil, apperrors.ErrRecoveryExpired
	}

	for _, next := range flow.ContinueWith {
		if next.ContinueWithSetOrySessionToken != nil {
			return p.LookupSession(ctx, next.ContinueWithSetOrySessionToken.OrySessionToken)
		}
	}
	return nil, apperrors.ErrRecoveryExpired
}

// Ping checks both APIs answer.
func (p *Provider) Ping(ctx context.Context) error {
	if _, resp, err := p.public.MetadataAPI.GetVersion(ctx).Execute(); err != nil {
		return classify("public_version", err, resp)
	}
	if _, resp, err := p.admin.MetadataAPI.GetVersion(ctx).Execute(); err != nil {
		return classify("admin_version", err, resp)
	}
	return nil
}

func toSession(s *kratos.Session, token string) *identity.Session {
	session := &identity.Session{
		Token: token,
		ID:    s.Id,
	}
	if s.Identity != nil {
		session.IdentityID = s.Identity.Id
		session.Email = traitString(s.Identity.Traits, "email")
	}
	if s.IssuedAt != nil {
		session.IssuedAt = *s.IssuedAt
	}
	if s.ExpiresAt != nil {
		session.ExpiresAt = *s.ExpiresAt
	}
	for _, method := range s.GetAuthenticationMethods() {
		if m := method.GetMethod(); m == "code_recovery" || m == "link_recovery" {
			session.Recovery = true
		}
	}
	return session
}

func toIdentity(i *kratos.Identity) identity.Identity {
	out := identity.Identity{
		ID:       i.Id,
		Email:    traitString(i.Traits, "email"),
		FullName: traitString(i.Traits, "full_name"),
		Phone:    traitString(i.Traits, "phone"),
	}
	if i.CreatedAt != nil {
		out.CreatedAt = *i.CreatedAt
	}
	for _, address := range i.VerifiableAddresses {
		if address.Verified {
			out.Verified = true
		}
	}
	return out
}

func traitString(traits interface{}, key string) string {
	if m, ok := traits.(map[string]interface{}); ok {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}
