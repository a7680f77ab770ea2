package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-portal/identity"
)

// Shell is what every layout needs: branding, the pending notification and, inside the app, the
// navigation and user menu.
type Shell struct {
	AppName string
	Title   string
	Flash   *Flash
	User    *ShellUser
	Nav     []NavItem
}

type ShellUser struct {
	DisplayName string
	Email       string
}

type NavItem struct {
	Label  string
	Href   string
	Icon   string
	Active bool
}

var appNavigation = []NavItem{
	{Label: "Dashboard", Href: RouteDashboard, Icon: "grid"},
	{Label: "Change password", Href: RouteChangePassword, Icon: "key"},
}

// FormPage is the data of every form page: the shell, field errors, a form level error and the
// submitted values to re-fill. Passwords are never part of Values.
type FormPage struct {
	Shell
	Errors    map[string]string
	FormError string
	Notice    string
	Values    map[string]string
	// Focus names the input that gets autofocus.
	Focus string
}

// focusFirst focuses the first of fields that has an error, or fallback when none has.
func (p *FormPage) focusFirst(fallback string, fields ...string) {
	for _, field := range fields {
		if _, ok := p.Errors[field]; ok {
			p.Focus = field
			return
		}
	}
	p.Focus = fallback
}

func (s *Server) authShell(w http.ResponseWriter, r *http.Request, title string) Shell {
	return Shell{
		AppName: s.config.GetAppName(),
		Title:   title,
		Flash:   s.takeFlash(w, r),
	}
}

// appShell builds the signed in shell. displayName falls back to the session email.
func (s *Server) appShell(w http.ResponseWriter, r *http.Request, title string, session *identity.Session, displayName string) Shell {
	if displayName == "" {
		displayName = session.Email
	}
	nav := make([]NavItem, len(appNavigation))
	copy(nav, appNavigation)
	for i := range nav {
		nav[i].Active = nav[i].Href == r.URL.Path
	}
	shell := s.authShell(w, r, title)
	shell.User = &ShellUser{DisplayName: displayName, Email: session.Email}
	shell.Nav = nav
	return shell
}

// displayName loads the profile name for the user menu. Lookup failures fall back to the email.
func (s *Server) displayName(r *http.Request, session *identity.Session) string {
	profile, err := s.gateway.GetProfile(r.Context(), session.IdentityID)
	if err != nil || profile.FullName == "" {
		return session.Email
	}
	return profile.FullName
}

func newFormPage(shell Shell) FormPage {
	return FormPage{Shell: shell, Errors: map[string]string{}, Values: map[string]string{}}
}
