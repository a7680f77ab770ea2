package server

import (
	"fmt"
	"html"
	"net/http"

	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/registration"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

const (
	formStepIdentity     = "identity"
	formStepOrganization = "organization"

	msgEmailConfirmed      = "Your email is confirmed. Sign in to finish registering your organization"
	msgConfirmationInvalid = "This confirmation link is invalid or has expired"
)

// RegisterPage is the template model of both registration steps.
type RegisterPage struct {
	FormPage
	Step         registration.Step
	TotalSteps   int
	Progress     int
	Identity     registration.IdentityDraft
	Organization validation.RegisterOrganization
}

func (s *Server) newRegisterPage(w http.ResponseWriter, r *http.Request, state registration.FormState) RegisterPage {
	return RegisterPage{
		FormPage:     newFormPage(s.authShell(w, r, "Create your account")),
		Step:         state.CurrentStep,
		TotalSteps:   state.TotalSteps,
		Progress:     state.Progress(),
		Identity:     state.Identity,
		Organization: state.Organization,
	}
}

// loadFormState decodes the registration cookie. A missing or tampered cookie starts over.
func (s *Server) loadFormState(r *http.Request) registration.FormState {
	raw := cookieValue(r, registrationCookieName)
	if raw == "" {
		return registration.NewFormState()
	}
	state, err := s.stateCodec.Decode(raw)
	if err != nil {
		log.Debug().Err(err).Msg("discarding registration state cookie")
		return registration.NewFormState()
	}
	return state
}

func (s *Server) saveFormState(w http.ResponseWriter, r *http.Request, state registration.FormState) {
	token, err := s.stateCodec.Encode(state)
	if err != nil {
		log.Err(err).Msg("could not encode registration state")
		return
	}
	s.setCookie(w, r, registrationCookieName, token, int(s.config.GetFormStateTTL().Seconds()))
}

// RegisterPageHandler shows the step the store says the caller is on (GET /auth/register).
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.registration.Resume(r.Context(), sessionToken(r))
		if err != nil {
			page := s.newRegisterPage(w, r, state)
			s.render(w, pageRegister, applyFormError(&page.FormPage, err), page)
			return
		}
		if state.CurrentStep == registration.StepComplete {
			redirectSuccess(w, r, RouteDashboard)
			return
		}

		// Drafts come from the cookie; the step never does.
		draft := s.loadFormState(r)
		if state.IdentityID == "" {
			state.Identity = draft.Identity
		}
		if draft.IdentityID == "" || draft.IdentityID == state.IdentityID {
			state.Organization = draft.Organization
		}
		s.render(w, pageRegister, http.StatusOK, s.newRegisterPage(w, r, state))
	}
}

// RegisterSubmissionHandler handles either registration step, selected by the form's step field.
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		switch r.PostFormValue("step") {
		case formStepIdentity:
			s.submitIdentity(w, r)
		case formStepOrganization:
			s.submitOrganization(w, r)
		default:
			http.Error(w, "Unknown registration step", http.StatusBadRequest)
		}
	}
}

func (s *Server) submitIdentity(w http.ResponseWriter, r *http.Request) {
	form := validation.RegisterIdentity{
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		FullName:        r.PostFormValue("fullName"),
		Phone:           r.PostFormValue("phone"),
	}
	state := s.loadFormState(r)
	state.CurrentStep = registration.StepIdentity

	result, err := s.registration.SubmitIdentity(r.Context(), state, form)
	if err != nil {
		if result != nil {
			state = result.State
		}
		s.saveFormState(w, r, state)
		page := s.newRegisterPage(w, r, state)
		s.render(w, pageRegister, applyFormError(&page.FormPage, err), page)
		return
	}

	s.saveFormState(w, r, result.State)
	if result.Session != nil {
		s.SetSessionCookies(w, r, result.Session)
	}
	switch {
	case result.Notice != "":
		s.redirectWithFlash(w, r, RouteLogin, Flash{Kind: FlashInfo, Message: result.Notice})
	case result.Warning != "":
		s.redirectWithFlash(w, r, RouteRegister, Flash{Kind: FlashWarning, Message: result.Warning})
	default:
		redirectSuccess(w, r, RouteRegister)
	}
}

func (s *Server) submitOrganization(w http.ResponseWriter, r *http.Request) {
	session := s.currentSession(r)
	if session == nil {
		s.ClearSessionCookies(w, r)
		s.redirectWithFlash(w, r, loginURL(RouteRegister), Flash{Kind: FlashInfo, Message: "Sign in to finish registering your organization"})
		return
	}

	form := validation.RegisterOrganization{
		Name:   r.PostFormValue("name"),
		Domain: r.PostFormValue("domain"),
		TaxID:  r.PostFormValue("taxId"),
	}
	state, err := s.registration.SubmitOrganization(r.Context(), s.loadFormState(r), session, form)
	if err != nil {
		s.saveFormState(w, r, state)
		page := s.newRegisterPage(w, r, state)
		s.render(w, pageRegister, applyFormError(&page.FormPage, err), page)
		return
	}

	s.clearCookie(w, r, registrationCookieName)
	if err := s.dashboard.Invalidate(r.Context(), session.IdentityID); err != nil {
		log.Warn().Err(err).Str("identity", session.IdentityID).Msg("could not invalidate dashboard after registration")
	}
	s.redirectWithFlash(w, r, RouteDashboard, Flash{Kind: FlashSuccess, Message: "Your organization is registered. Welcome aboard"})
}

// ConfirmEmailHandler is where confirmation emails lead (GET /auth/confirm). Either way the browser
// lands on the login page with a flash saying what happened.
func (s *Server) ConfirmEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.gateway.ConfirmEmail(r.Context(), r.URL.Query().Get("token"))
		switch {
		case err == nil:
			s.redirectWithFlash(w, r, RouteLogin, Flash{Kind: FlashSuccess, Message: msgEmailConfirmed})
		case apperrors.Is(err, apperrors.ErrConfirmationInvalid):
			s.redirectWithFlash(w, r, RouteLogin, Flash{Kind: FlashError, Message: msgConfirmationInvalid})
		case apperrors.Is(err, apperrors.ErrUnsupported):
			s.renderNotFound(w, r)
		default:
			_, message := describeError(err)
			s.redirectWithFlash(w, r, RouteLogin, Flash{Kind: FlashError, Message: message})
		}
	}
}

// ValidatePasswordHandler gives live password feedback to htmx forms
func (s *Server) ValidatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		password := r.FormValue("password")
		if password == "" {
			password = r.FormValue("newPassword")
		}
		w.Header().Set("Content-Type", contentTypeHTML)

		if password == "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := s.validator.ValidatePassword(password); err != nil {
			msg := err.Error()
			if verr, ok := err.(*validation.ValidationError); ok {
				msg = verr.Get("password")
			}
			w.Header().Set("HX-Trigger", `{"passwordInvalid": ""}`)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `<span class="field-hint field-hint--error">%s</span>`, html.EscapeString(msg))
			return
		}

		w.Header().Set("HX-Trigger", `{"passwordValid": ""}`)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<span class="field-hint field-hint--ok">Looks good</span>`)
	}
}
