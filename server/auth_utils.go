package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-tenant-portal/gateway"
	"github.com/jrsteele09/go-tenant-portal/identity"
)

const (
	// sessionCookieName carries the provider's opaque session token
	sessionCookieName = "portal_session"
	// sessionExpiryCookieName lets the route guard decide on refresh without a provider call
	sessionExpiryCookieName = "portal_session_exp"
	// registrationCookieName carries the signed registration form state
	registrationCookieName = "portal_registration"
	// recoveryCookieName remembers the recovery reference between the request and the emailed code
	recoveryCookieName = "portal_recovery"

	recoveryCookieMaxAge = 30 * 60
)

func (s *Server) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	s.setCookie(w, r, name, "", -1)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSessionCookies stores the session token and its expiry. A session without an expiry lives as long
// as the browser session.
func (s *Server) SetSessionCookies(w http.ResponseWriter, r *http.Request, session *identity.Session) {
	maxAge := 0
	if !session.ExpiresAt.IsZero() {
		maxAge = int(time.Until(session.ExpiresAt).Seconds())
		if maxAge <= 0 {
			s.ClearSessionCookies(w, r)
			return
		}
	}
	s.setCookie(w, r, sessionCookieName, session.Token, maxAge)
	if !session.ExpiresAt.IsZero() {
		s.setCookie(w, r, sessionExpiryCookieName, strconv.FormatInt(session.ExpiresAt.Unix(), 10), maxAge)
	}
}

func (s *Server) ClearSessionCookies(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, r, sessionCookieName)
	s.clearCookie(w, r, sessionExpiryCookieName)
}

// sessionToken is the token the guard refreshed for this request, or the cookie's.
func sessionToken(r *http.Request) string {
	if s := gateway.SessionFromContext(r.Context()); s != nil {
		return s.Token
	}
	return cookieValue(r, sessionCookieName)
}

func hasSessionCookie(r *http.Request) bool {
	return cookieValue(r, sessionCookieName) != ""
}

func sessionExpiry(r *http.Request) (time.Time, bool) {
	raw := cookieValue(r, sessionExpiryCookieName)
	if raw == "" {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}

// currentSession verifies the caller's session with the gateway. It returns nil when there is none.
func (s *Server) currentSession(r *http.Request) *identity.Session {
	if session := gateway.SessionFromContext(r.Context()); session != nil {
		return session
	}
	return s.gateway.GetSession(r.Context(), sessionToken(r))
}

// requireSession returns the verified session or answers with a redirect to login. A stale cookie is
// cleared so the guard does not send the browser back here.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) *identity.Session {
	session := s.currentSession(r)
	if session != nil {
		return session
	}
	s.ClearSessionCookies(w, r)
	redirectSuccess(w, r, loginURL(r.URL.RequestURI()))
	return nil
}

func loginURL(next string) string {
	if next == "" || next == RouteRoot {
		return RouteLogin
	}
	return RouteLogin + "?next=" + url.QueryEscape(next)
}

// safeNext keeps post-login redirects on this site: only absolute paths without a host are honoured.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return RouteDashboard
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return RouteDashboard
	}
	if strings.HasPrefix(u.Path, "/auth/") {
		return RouteDashboard
	}
	return next
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithFlash stores a notification for the next page and redirects to it.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, path string, f Flash) {
	s.setFlash(w, r, f)
	redirectSuccess(w, r, path)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
