package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

// LoginPage is the template model of the sign-in page.
type LoginPage struct {
	FormPage
	Next string
}

func (s *Server) newLoginPage(w http.ResponseWriter, r *http.Request) LoginPage {
	return LoginPage{
		FormPage: newFormPage(s.authShell(w, r, "Sign in")),
		Next:     r.FormValue("next"),
	}
}

// LoginPageHandler displays the login page (GET /auth/login). Signed in callers go straight on.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session := s.currentSession(r); session != nil {
			redirectSuccess(w, r, safeNext(r.URL.Query().Get("next")))
			return
		}
		page := s.newLoginPage(w, r)
		page.Values["email"] = r.URL.Query().Get("email")
		page.Focus = "email"
		s.render(w, pageLogin, http.StatusOK, page)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := validation.Login{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}
		page := s.newLoginPage(w, r)
		err := s.validator.Validate(&form)
		page.Values["email"] = form.Email
		if err != nil {
			s.renderLoginError(w, page, err)
			return
		}

		session, err := s.gateway.Login(r.Context(), form.Email, form.Password)
		if err != nil {
			s.renderLoginError(w, page, err)
			return
		}

		s.SetSessionCookies(w, r, session)
		if status := s.registration.Status(r.Context(), session.Token); !status.IsRegistrationComplete {
			s.redirectWithFlash(w, r, RouteRegister, Flash{Kind: FlashInfo, Message: "Finish registering your organization to continue"})
			return
		}
		redirectSuccess(w, r, safeNext(page.Next))
	}
}

// renderLoginError shows err with the password cleared and focused, unless the email itself is wrong.
func (s *Server) renderLoginError(w http.ResponseWriter, page LoginPage, err error) {
	status := applyFormError(&page.FormPage, err)
	page.focusFirst("password", "email", "password")
	s.render(w, pageLogin, status, page)
}

// LogoutHandler ends the session (POST /auth/logout). Provider failures still sign the browser out.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.gateway.Logout(r.Context(), cookieValue(r, sessionCookieName)); err != nil {
			log.Err(err).Msg("Logout: provider did not invalidate the session")
		}
		s.ClearSessionCookies(w, r)
		s.clearCookie(w, r, registrationCookieName)
		s.redirectWithFlash(w, r, RouteLogin, Flash{Kind: FlashSuccess, Message: "You have been signed out"})
	}
}
