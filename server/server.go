package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/fatih/color"
	"github.com/jrsteele09/go-tenant-portal/dashboard"
	"github.com/jrsteele09/go-tenant-portal/gateway"
	"github.com/jrsteele09/go-tenant-portal/internal/config"
	"github.com/jrsteele09/go-tenant-portal/registration"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Services are the application components the handlers call into.
type Services struct {
	Gateway      *gateway.Gateway
	Registration *registration.Workflow
	Dashboard    *dashboard.Service
	Validator    *validation.Validator
	StateCodec   *registration.StateCodec
	HealthChecks map[string]HealthCheck
}

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	handler        http.Handler
	routes         []string
	config         config.Config
	gateway        *gateway.Gateway
	registration   *registration.Workflow
	dashboard      *dashboard.Service
	validator      *validation.Validator
	stateCodec     *registration.StateCodec
	healthChecks   map[string]HealthCheck
	limiter        *RateLimiter
	trustedProxies []netip.Prefix
	pages          *pageSet
}

func New(config config.Config, services Services) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:          config.GetEnv(),
		mux:          http.NewServeMux(),
		config:       config,
		gateway:      services.Gateway,
		registration: services.Registration,
		dashboard:    services.Dashboard,
		validator:    services.Validator,
		stateCodec:   services.StateCodec,
		healthChecks: services.HealthChecks,
		pages:        pages,
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if config.GetEnableRateLimiting() {
		s.limiter = NewRateLimiter(rate.Limit(config.GetRateLimit()), config.GetRateLimitBurst())
		s.trustedProxies = config.GetTrustedProxies()
	}

	s.initRoutes()
	s.logRoutes()

	// The guard sees every request, including ones the mux would 404.
	s.handler = ChainMiddleware(s.mux.ServeHTTP, s.RecoverMiddleware, s.WWWRedirectMiddleware, s.RouteGuard)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

var methodColors = map[string]*color.Color{
	http.MethodGet:    color.New(color.FgGreen),
	http.MethodPost:   color.New(color.FgYellow),
	http.MethodPut:    color.New(color.FgBlue),
	http.MethodPatch:  color.New(color.FgCyan),
	http.MethodDelete: color.New(color.FgRed),
}

var otherMethodColor = color.New(color.FgHiBlack)

func methodLabel(method string) string {
	c, ok := methodColors[method]
	if !ok {
		c = otherMethodColor
	}
	return c.Sprintf(" %-7s", method)
}

func logRoute(method, path string) {
	log.Info().Msgf("[%s] %s", methodLabel(method), path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
