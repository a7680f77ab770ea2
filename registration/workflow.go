// Package registration drives the two step sign-up: identity first, then the organization the identity owns.
package registration

import (
	"context"
	"time"

	"github.com/jrsteele09/go-tenant-portal/companies"
	"github.com/jrsteele09/go-tenant-portal/identity"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/metrics"
	"github.com/jrsteele09/go-tenant-portal/internal/retry"
	"github.com/jrsteele09/go-tenant-portal/internal/utils"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

const (
	warnProfileNotSaved = "Your account was created but some profile details could not be saved. You can update them later"
	noticeConfirmEmail  = "Check your inbox to confirm your email, then sign in to finish registering your organization"
)

// Identities is the part of the session gateway registration depends on.
type Identities interface {
	SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.SignUpResult, error)
	Login(ctx context.Context, email, password string) (*identity.Session, error)
	GetSession(ctx context.Context, token string) *identity.Session
}

type Workflow struct {
	identities Identities
	profiles   profiles.Repo
	companies  companies.Repo
	validator  *validation.Validator
	policy     retry.Policy
	now        func() time.Time
}

type Option func(*Workflow)

func WithNowTime(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(w *Workflow) {
		w.policy = p
	}
}

func NewWorkflow(identities Identities, profileRepo profiles.Repo, companyRepo companies.Repo, v *validation.Validator, opts ...Option) *Workflow {
	w := &Workflow{
		identities: identities,
		profiles:   profileRepo,
		companies:  companyRepo,
		validator:  v,
		policy:     retry.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Status answers whether the caller is signed in and has finished registering.
type Status struct {
	IsAuthenticated        bool `json:"isAuthenticated"`
	IsRegistrationComplete bool `json:"isRegistrationComplete"`
}

// IdentityResult is the outcome of a successful step one. Session is nil when the provider holds the
// identity back until its email is confirmed; Notice then tells the user what to do.
type IdentityResult struct {
	State   FormState
	Session *identity.Session
	Warning string
	Notice  string
}

// Resume decides the step to show from the store rather than from client state: a signed in identity
// without an organization always lands on step two.
func (w *Workflow) Resume(ctx context.Context, token string) (FormState, error) {
	state := NewFormState()
	session := w.identities.GetSession(ctx, token)
	if session == nil {
		return state, nil
	}
	state.IdentityID = session.IdentityID
	state.Identity.Email = session.Email

	profile, err := w.profile(ctx, session.IdentityID)
	switch {
	case apperrors.Is(err, apperrors.ErrProfileNotFound):
		state.CurrentStep = StepOrganization
	case err != nil:
		return state, apperrors.Wrapf(err, "[Workflow Resume] loading profile")
	case profile.RegistrationComplete():
		state.CurrentStep = StepComplete
	default:
		state.CurrentStep = StepOrganization
		state.Identity.FullName = profile.FullName
	}
	return state, nil
}

// Status never fails: lookup problems read as "not complete".
func (w *Workflow) Status(ctx context.Context, token string) Status {
	session := w.identities.GetSession(ctx, token)
	if session == nil {
		return Status{}
	}
	profile, err := w.profile(ctx, session.IdentityID)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrProfileNotFound) {
			log.Warn().Err(err).Str("identity", session.IdentityID).Msg("registration status lookup failed")
		}
		return Status{IsAuthenticated: true}
	}
	return Status{IsAuthenticated: true, IsRegistrationComplete: profile.RegistrationComplete()}
}

// SubmitIdentity validates step one, creates the identity and its profile row and advances to step two.
// On error the returned state still holds the submitted drafts so the form can be re-rendered.
func (w *Workflow) SubmitIdentity(ctx context.Context, state FormState, form validation.RegisterIdentity) (*IdentityResult, error) {
	if err := w.validator.Validate(&form); err != nil {
		state.Identity = IdentityDraft{Email: form.Email, FullName: form.FullName, Phone: form.Phone}
		metrics.Registrations.WithLabelValues(StepIdentity.String(), "invalid").Inc()
		return &IdentityResult{State: state}, err
	}
	state.Identity = IdentityDraft{Email: form.Email, FullName: form.FullName, Phone: form.Phone}

	signUp, err := w.identities.SignUp(ctx, identity.SignUpRequest{
		Email:    form.Email,
		Password: form.Password,
		FullName: form.FullName,
		Phone:    form.Phone,
	})
	if err != nil {
		metrics.Registrations.WithLabelValues(StepIdentity.String(), "rejected").Inc()
		return &IdentityResult{State: state}, err
	}

	result := &IdentityResult{Session: signUp.Session}
	state.IdentityID = signUp.Identity.ID
	state.CurrentStep = StepOrganization

	profile := &profiles.Profile{ID: signUp.Identity.ID, FullName: form.FullName, Phone: utils.OptionalString(form.Phone)}
	if err := w.policy.Do(ctx, "registration.CreateProfile", func(ctx context.Context) error {
		return w.profiles.Create(ctx, profile)
	}); err != nil {
		// Organization linking upserts the row, so step two still completes.
		log.Warn().Err(err).Str("identity", signUp.Identity.ID).Msg("profile row not created at sign-up")
		result.Warning = warnProfileNotSaved
	}

	if result.Session == nil {
		session, err := w.identities.Login(ctx, form.Email, form.Password)
		if err != nil {
			log.Info().Err(err).Str("identity", signUp.Identity.ID).Msg("new identity cannot sign in yet")
			result.Notice = noticeConfirmEmail
		}
		result.Session = session
	}

	result.State = state
	metrics.Registrations.WithLabelValues(StepIdentity.String(), "completed").Inc()
	return result, nil
}

// SubmitOrganization validates step two, creates the caller's organization and links it to their profile.
// A company created but left unlinked yields an *AssociationError; the reconciler may finish it later.
func (w *Workflow) SubmitOrganization(ctx context.Context, state FormState, session *identity.Session, form validation.RegisterOrganization) (FormState, error) {
	if session == nil {
		return state, apperrors.ErrUnauthenticated
	}
	if state.IdentityID != "" && state.IdentityID != session.IdentityID {
		log.Warn().Str("state", state.IdentityID).Str("session", session.IdentityID).Msg("registration state belongs to another identity")
	}
	state.IdentityID = session.IdentityID
	state.CurrentStep = StepOrganization

	err := w.validator.Validate(&form)
	state.Organization = form
	if err != nil {
		metrics.Registrations.WithLabelValues(StepOrganization.String(), "invalid").Inc()
		return state, err
	}

	company, err := w.ownedCompany(ctx, session.IdentityID, form)
	if err != nil {
		metrics.Registrations.WithLabelValues(StepOrganization.String(), "failed").Inc()
		return state, err
	}

	if err := w.policy.Do(ctx, "registration.LinkCompany", func(ctx context.Context) error {
		return w.profiles.LinkCompany(ctx, session.IdentityID, company.ID)
	}); err != nil {
		metrics.Registrations.WithLabelValues(StepOrganization.String(), "association_failed").Inc()
		log.Err(err).Str("company", company.ID).Str("identity", session.IdentityID).Msg("organization created but not associated")
		return state, &apperrors.AssociationError{CompanyID: company.ID, IdentityID: session.IdentityID, Err: err}
	}

	if err := w.companies.MarkAssociated(ctx, company.ID, w.now()); err != nil {
		// The profile already points at the company; the reconciler clears the pending marker.
		log.Warn().Err(err).Str("company", company.ID).Msg("could not clear pending association marker")
	}

	state.CurrentStep = StepComplete
	metrics.Registrations.WithLabelValues(StepOrganization.String(), "completed").Inc()
	return state, nil
}

// ownedCompany returns the caller's pending company, creating it on first submission. Owner uniqueness
// makes a resubmitted form reuse the company created earlier.
func (w *Workflow) ownedCompany(ctx context.Context, ownerID string, form validation.RegisterOrganization) (*companies.Company, error) {
	existing, err := retry.Value(ctx, w.policy, "registration.GetCompany", func(ctx context.Context) (*companies.Company, error) {
		return w.companies.GetByOwner(ctx, ownerID)
	})
	if err == nil {
		return existing, nil
	}
	if !apperrors.Is(err, apperrors.ErrCompanyNotFound) {
		return nil, apperrors.Wrapf(err, "[Workflow SubmitOrganization] looking up company")
	}

	company := &companies.Company{Name: form.Name, OwnerID: ownerID}
	if form.Domain != "" {
		company.Domain = &form.Domain
	}
	if form.TaxID != "" {
		company.TaxID = &form.TaxID
	}
	err = w.policy.Do(ctx, "registration.CreateCompany", func(ctx context.Context) error {
		return w.companies.Create(ctx, company)
	})
	if apperrors.Is(err, apperrors.ErrDuplicateIdentity) {
		// An earlier attempt landed after its timeout.
		return w.companies.GetByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Workflow SubmitOrganization] creating company")
	}
	return company, nil
}

func (w *Workflow) profile(ctx context.Context, identityID string) (*profiles.Profile, error) {
	return retry.Value(ctx, w.policy, "registration.GetProfile", func(ctx context.Context) (*profiles.Profile, error) {
		return w.profiles.Get(ctx, identityID)
	})
}
