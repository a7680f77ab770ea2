package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const healthTimeout = 2 * time.Second

// RootHandler applies the root rule for requests that reach the mux directly.
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, Decide(ClassRoot, hasSessionCookie(r), r.URL.RequestURI()).Redirect)
	}
}

// NotFoundHandler renders the catch-all 404 page
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderNotFound(w, r)
	}
}

// NotFoundPage links back to the dashboard when the caller still holds a session cookie.
type NotFoundPage struct {
	Shell
	Path     string
	SignedIn bool
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageNotFound, http.StatusNotFound, NotFoundPage{
		Shell:    s.authShell(w, r, "Page not found"),
		Path:     r.URL.Path,
		SignedIn: hasSessionCookie(r),
	})
}

// HealthResponse reports each dependency as "ok" or its error.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler pings every configured dependency concurrently.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(s.healthChecks))}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for name, check := range s.healthChecks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result := "ok"
				if err := check(ctx); err != nil {
					log.Warn().Err(err).Str("check", name).Msg("health check failed")
					result = "unavailable"
				}
				mu.Lock()
				defer mu.Unlock()
				resp.Checks[name] = result
				if result != "ok" {
					resp.Status = "degraded"
				}
			}()
		}
		wg.Wait()

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
