package server

func (s *Server) initRoutes() {
	// LOGIN + STEP-UP
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthVerifyMFA, ChainMiddleware(s.VerifyMFAHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession())...))

	// EMAIL VERIFICATION
	s.RegisterRouteFunc("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteResendVerification, ChainMiddleware(s.ResendVerificationHandler(), s.APIMiddleware(s.RequireSession())...))

	// FEDERATION
	s.RegisterRouteFunc("GET "+RouteOAuthBegin, ChainMiddleware(s.OAuthBeginHandler(), s.BrowserMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteOAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.BrowserMiddleware()...))

	// AUTHORIZATION GATE (consulted by downstream services on every request)
	s.RegisterRouteFunc("GET "+RouteWorkspaceAuthorize, ChainMiddleware(s.WorkspaceAuthorizeHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteFunc("GET "+RouteWorkspaceList, ChainMiddleware(s.WorkspaceListHandler(), s.APIMiddleware(s.RequireSession())...))

	// SUPER-ADMIN (account tier, orthogonal to workspace roles)
	s.RegisterRouteFunc("GET "+RouteSuperAdminOverview,
		ChainMiddleware(s.SuperAdminOverviewHandler(), s.APIMiddleware(s.RequireSession(), s.RequireSuperAdmin())...))

	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
}
