// Package server is the HTTP surface of the identity core. Handlers stay
// thin: protocol parsing here, authentication semantics in authn and
// federation, authorization in authz.
package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tasklane/identity/authn"
	"github.com/tasklane/identity/federation"
	"github.com/tasklane/identity/internal/config"
	"github.com/tasklane/identity/sessions"
	"github.com/tasklane/identity/workspaces"
)

type Server struct {
	env         string // Environment (e.g., "DEV", "production")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	authn       *authn.Service
	bridge      *federation.Bridge
	establisher *sessions.Establisher
	memberships workspaces.Repo
}

func New(cfg config.Config, authnService *authn.Service, bridge *federation.Bridge, establisher *sessions.Establisher, memberships workspaces.Repo) *Server {
	s := &Server{
		env:         cfg.Env,
		mux:         http.NewServeMux(),
		config:      cfg,
		authn:       authnService,
		bridge:      bridge,
		establisher: establisher,
		memberships: memberships,
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			log.Info().Str("path", parts[0]).Msg("route")
		}
	}
}
