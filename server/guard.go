package server

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jrsteele09/go-tenant-portal/gateway"
	"github.com/jrsteele09/go-tenant-portal/internal/metrics"
	"github.com/rs/zerolog/log"
)

// PathClass decides how the route guard treats a request path.
type PathClass string

const (
	ClassRoot      PathClass = "root"
	ClassPublic    PathClass = "public"
	ClassProtected PathClass = "protected"
)

const refreshTimeout = 2 * time.Second

// ClassifyPath sorts a request path. Anything not explicitly public is protected.
func ClassifyPath(path string) PathClass {
	if path == RouteRoot || path == "" {
		return ClassRoot
	}
	if slices.Contains(publicPaths, path) {
		return ClassPublic
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return ClassPublic
		}
	}
	return ClassProtected
}

// GuardDecision is what the guard does with a request.
type GuardDecision struct {
	Redirect string // empty means pass
}

// Decide applies the guard table. Only cookie presence is considered; handlers verify the session.
func Decide(class PathClass, hasSession bool, requestURI string) GuardDecision {
	switch class {
	case ClassRoot:
		if hasSession {
			return GuardDecision{Redirect: RouteDashboard}
		}
		return GuardDecision{Redirect: RouteLogin}
	case ClassProtected:
		if !hasSession {
			return GuardDecision{Redirect: loginURL(requestURI)}
		}
	}
	return GuardDecision{}
}

// RouteGuard refreshes sessions that are about to expire and redirects requests the caller may not make.
func (s *Server) RouteGuard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = s.refreshSession(w, r)

		class := ClassifyPath(r.URL.Path)
		decision := Decide(class, hasSessionCookie(r), r.URL.RequestURI())
		if decision.Redirect == "" {
			metrics.GuardDecisions.WithLabelValues(string(class), "pass").Inc()
			next(w, r)
			return
		}

		outcome := "login"
		if decision.Redirect == RouteDashboard {
			outcome = "dashboard"
		}
		metrics.GuardDecisions.WithLabelValues(string(class), outcome).Inc()
		log.Debug().Str("path", r.URL.Path).Str("class", string(class)).Str("redirect", decision.Redirect).Msg("route guard redirect")
		redirectSuccess(w, r, decision.Redirect)
	}
}

// refreshSession extends a session whose expiry cookie falls within the refresh window. Failures are
// logged and the request continues with the cookie it came with.
func (s *Server) refreshSession(w http.ResponseWriter, r *http.Request) *http.Request {
	token := cookieValue(r, sessionCookieName)
	if token == "" {
		return r
	}
	expiresAt, ok := sessionExpiry(r)
	if !ok || time.Until(expiresAt) > s.config.GetSessionRefreshWindow() {
		return r
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()
	session, err := s.gateway.RefreshSession(ctx, token)
	if err != nil {
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		log.Debug().Err(err).Msg("session refresh failed")
		return r
	}
	metrics.SessionRefreshes.WithLabelValues("refreshed").Inc()
	s.SetSessionCookies(w, r, session)
	return r.WithContext(gateway.ContextWithSession(r.Context(), session))
}
