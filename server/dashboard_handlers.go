package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-portal/dashboard"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/validation"
)

// DashboardPage is the template model of the overview.
type DashboardPage struct {
	Shell
	Snapshot  dashboard.Snapshot
	Periods   []validation.Period
	Error     string
	HasOrders bool
}

// DashboardHandler renders the overview for the requested period (GET /dashboard?period=).
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.requireSession(w, r)
		if session == nil {
			return
		}

		period, err := s.validator.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			s.setFlash(w, r, Flash{Kind: FlashError, Message: "Unknown period, showing the last 7 days"})
			redirectSuccess(w, r, RouteDashboard)
			return
		}

		snapshot, err := s.dashboard.GetDashboard(r.Context(), session.IdentityID, period)
		if apperrors.Is(err, apperrors.ErrProfileNotFound) {
			// No profile row yet: registration resumes at the organization step.
			redirectSuccess(w, r, RouteRegister)
			return
		}

		page := DashboardPage{
			Shell:    s.appShell(w, r, "Dashboard", session, snapshot.DisplayName),
			Snapshot: snapshot,
			Periods:  validation.Periods,
		}
		status := http.StatusOK
		if err != nil {
			status, page.Error = describeError(err)
			page.Snapshot.Period = period
		}
		page.HasOrders = len(snapshot.RecentOrders) > 0
		s.render(w, pageDashboard, status, page)
	}
}

// DashboardAPIHandler returns the snapshot as JSON (GET /api/dashboard?period=).
func (s *Server) DashboardAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.currentSession(r)
		if session == nil {
			writeAPIError(w, apperrors.ErrUnauthenticated)
			return
		}
		period, err := s.validator.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			writeAPIError(w, err)
			return
		}
		snapshot, err := s.dashboard.GetDashboard(r.Context(), session.IdentityID, period)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrProfileNotFound) {
				writeJSON(w, http.StatusNotFound, APIResponse{Error: "Profile not found. Finish registering to see your dashboard"})
				return
			}
			writeAPIError(w, err)
			return
		}
		writeAPISuccess(w, snapshot)
	}
}

// SessionAPIHandler reports whether the caller is signed in and registered (GET /api/session).
func (s *Server) SessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeAPISuccess(w, s.registration.Status(r.Context(), sessionToken(r)))
	}
}
