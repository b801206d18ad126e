package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Step-up
	RouteAuthLogin     = "/auth/login"
	RouteAuthVerifyMFA = "/auth/verify-mfa"
	RouteAuthLogout    = "/auth/logout"
	RouteAuthMe        = "/auth/me"

	// Auth Routes - Email Verification
	RouteVerifyEmail        = "/auth/verify-email"
	RouteResendVerification = "/auth/verify-email/resend"

	// Federation Routes
	RouteOAuthBegin    = "/oauth/{provider}/login"
	RouteOAuthCallback = "/oauth/callback"

	// Authorization Gate
	RouteWorkspaceAuthorize = "/workspaces/{workspaceID}/authorize"
	RouteWorkspaceList      = "/auth/workspaces"

	// Super-admin surface (tier-gated, disjoint from workspace roles)
	RouteSuperAdminOverview = "/superadmin/overview"

	// Browser entry points used as redirect targets
	RouteSignIn     = "/sign-in"
	RouteDashboard  = "/dashboard"
	RouteSuperAdmin = "/superadmin"

	// Ops
	RouteHealthz = "/healthz"
)
