package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.RootHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// REGISTRATION
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteConfirmEmail, ChainMiddleware(s.ConfirmEmailHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))

	// PASSWORD RECOVERY
	s.RegisterRouteHandler("GET "+RoutePasswordReset, ChainMiddleware(s.PasswordResetPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RoutePasswordReset, ChainMiddleware(s.PasswordResetRequestHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RoutePasswordResetUpdate, ChainMiddleware(s.PasswordUpdatePageHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RoutePasswordResetUpdate, ChainMiddleware(s.PasswordUpdateHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))

	// DASHBOARD
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.CompressionMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteChangePassword, ChainMiddleware(s.ChangePasswordPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteChangePassword, ChainMiddleware(s.ChangePasswordHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIDashboard, ChainMiddleware(s.DashboardAPIHandler(), s.APIMiddleware(s.CompressionMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIValidatePassword, ChainMiddleware(s.ValidatePasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(http.NotFound, s.APIMiddleware()...))

	// Operational routes
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware, s.CompressionMiddleware)...))

	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.HTMLMiddleWare()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/static")
		filePath = strings.TrimPrefix(filePath, "/")
		if filePath == "" {
			s.renderNotFound(w, r)
			return
		}
		if err := StreamFile(w, r, filePath); err != nil {
			log.Debug().Err(err).Str("path", filePath).Msg("static file not found")
			s.renderNotFound(w, r)
			return
		}
	}
}
