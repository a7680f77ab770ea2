package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-portal/identity"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

const (
	msgResetSent       = "If an account exists for that email, a link to reset your password is on its way"
	msgResetLinkNeeded = "Open the link from your email, or enter the code it contains"
	msgPasswordUpdated = "Your password has been updated"
)

// PasswordUpdatePage serves both stages of the update page: entering the emailed code, then choosing
// the new password once a recovery session exists.
type PasswordUpdatePage struct {
	FormPage
	NeedsCode bool
	Reference string
}

// PasswordResetPageHandler shows the reset request form (GET /auth/password-reset)
func (s *Server) PasswordResetPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := newFormPage(s.authShell(w, r, "Reset your password"))
		page.Values["email"] = r.URL.Query().Get("email")
		s.render(w, pagePasswordReset, http.StatusOK, page)
	}
}

// PasswordResetRequestHandler asks the provider to email a recovery link. The answer is the same whether
// or not the email belongs to an account.
func (s *Server) PasswordResetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := validation.PasswordResetRequest{Email: r.PostFormValue("email")}
		page := newFormPage(s.authShell(w, r, "Reset your password"))
		err := s.validator.Validate(&form)
		page.Values["email"] = form.Email
		if err != nil {
			s.render(w, pagePasswordReset, applyFormError(&page, err), page)
			return
		}

		ref, err := s.gateway.RequestPasswordReset(r.Context(), form.Email)
		if err != nil {
			s.render(w, pagePasswordReset, applyFormError(&page, err), page)
			return
		}
		if ref != "" {
			s.setCookie(w, r, recoveryCookieName, ref, recoveryCookieMaxAge)
		}
		page.Notice = msgResetSent
		s.render(w, pagePasswordReset, http.StatusOK, page)
	}
}

// PasswordUpdatePageHandler is where recovery emails lead (GET /auth/password-reset/update). A link
// carrying a code is exchanged for a recovery session and then redirected to itself without the code.
func (s *Server) PasswordUpdatePageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if code := query.Get("code"); code != "" {
			ref := query.Get("ref")
			if ref == "" {
				ref = cookieValue(r, recoveryCookieName)
			}
			s.exchangeRecovery(w, r, ref, code)
			return
		}

		page := s.newPasswordUpdatePage(w, r)
		if page.NeedsCode && page.Reference == "" {
			page.Notice = msgResetLinkNeeded
		}
		s.render(w, pagePasswordUpdate, http.StatusOK, page)
	}
}

// PasswordUpdateHandler accepts either the emailed code or, with a recovery session, the new password.
func (s *Server) PasswordUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		if code := r.PostFormValue("code"); code != "" {
			ref := r.PostFormValue("ref")
			if ref == "" {
				ref = cookieValue(r, recoveryCookieName)
			}
			s.exchangeRecovery(w, r, ref, code)
			return
		}

		page := s.newPasswordUpdatePage(w, r)
		session := s.currentSession(r)
		if !isRecovery(session) {
			page.NeedsCode = true
			page.FormError = "Your reset link has expired. Request a new one"
			s.render(w, pagePasswordUpdate, http.StatusUnauthorized, page)
			return
		}

		form := validation.NewPassword{
			Password:        r.PostFormValue("password"),
			ConfirmPassword: r.PostFormValue("confirmPassword"),
		}
		if err := s.validator.Validate(&form); err != nil {
			s.render(w, pagePasswordUpdate, applyFormError(&page.FormPage, err), page)
			return
		}
		if err := s.gateway.UpdatePassword(r.Context(), session.Token, form.Password); err != nil {
			s.render(w, pagePasswordUpdate, applyFormError(&page.FormPage, err), page)
			return
		}

		s.clearCookie(w, r, recoveryCookieName)
		s.redirectWithFlash(w, r, RouteDashboard, Flash{Kind: FlashSuccess, Message: msgPasswordUpdated})
	}
}

func (s *Server) newPasswordUpdatePage(w http.ResponseWriter, r *http.Request) PasswordUpdatePage {
	return PasswordUpdatePage{
		FormPage:  newFormPage(s.authShell(w, r, "Choose a new password")),
		NeedsCode: !isRecovery(s.currentSession(r)),
		Reference: cookieValue(r, recoveryCookieName),
	}
}

// isRecovery reports whether session came from an emailed recovery code. Only such sessions may use the
// reset form; signed in users change their password with the current one.
func isRecovery(session *identity.Session) bool {
	return session != nil && session.Recovery
}

func (s *Server) exchangeRecovery(w http.ResponseWriter, r *http.Request, ref, code string) {
	session, err := s.gateway.ExchangeRecovery(r.Context(), ref, code)
	if err != nil {
		log.Debug().Err(err).Msg("recovery exchange rejected")
		page := s.newPasswordUpdatePage(w, r)
		page.NeedsCode = true
		page.Reference = ref
		s.render(w, pagePasswordUpdate, applyFormError(&page.FormPage, err), page)
		return
	}
	s.SetSessionCookies(w, r, session)
	s.setCookie(w, r, recoveryCookieName, ref, recoveryCookieMaxAge)
	redirectSuccess(w, r, RoutePasswordResetUpdate)
}

// ChangePasswordPageHandler shows the change password form to a signed in user
func (s *Server) ChangePasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.requireSession(w, r)
		if session == nil {
			return
		}
		page := newFormPage(s.appShell(w, r, "Change password", session, s.displayName(r, session)))
		page.Focus = "currentPassword"
		s.render(w, pageChangePassword, http.StatusOK, page)
	}
}

// ChangePasswordHandler verifies the current password through the provider before setting the new one.
func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.requireSession(w, r)
		if session == nil {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := validation.ChangePassword{
			CurrentPassword: r.PostFormValue("currentPassword"),
			NewPassword:     r.PostFormValue("newPassword"),
			ConfirmPassword: r.PostFormValue("confirmPassword"),
		}
		page := newFormPage(s.appShell(w, r, "Change password", session, s.displayName(r, session)))
		err := s.validator.Validate(&form)
		if err == nil {
			err = s.gateway.ChangePassword(r.Context(), session.Token, form.CurrentPassword, form.NewPassword)
		}
		if err != nil {
			// Password inputs are never echoed back, so the form comes back empty.
			status := applyFormError(&page, err)
			page.focusFirst("currentPassword", "currentPassword", "newPassword", "confirmPassword")
			s.render(w, pageChangePassword, status, page)
			return
		}
		s.redirectWithFlash(w, r, RouteDashboard, Flash{Kind: FlashSuccess, Message: msgPasswordUpdated})
	}
}
