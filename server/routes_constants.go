package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteRoot = "/"

	// Auth Routes - Login & Logout
	RouteLogin  = "/auth/login"
	RouteLogout = "/auth/logout"

	// Auth Routes - Registration
	RouteRegister     = "/auth/register"
	RouteConfirmEmail = "/auth/confirm"

	// Auth Routes - Password Recovery
	RoutePasswordReset       = "/auth/password-reset"
	RoutePasswordResetUpdate = "/auth/password-reset/update"

	// App Routes
	RouteDashboard      = "/dashboard"
	RouteChangePassword = "/dashboard/change-password"

	// API Routes
	RouteAPIDashboard        = "/api/dashboard"
	RouteAPISession          = "/api/session"
	RouteAPIValidatePassword = "/api/validate-password"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
	RouteFavicon = "/favicon.ico"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file...}"
)

// publicPrefixes are reachable without a session cookie.
var publicPrefixes = []string{"/auth/", "/api/", "/static/"}

var publicPaths = []string{RouteHealth, RouteMetrics, RouteFavicon}
