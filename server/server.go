package server

import (
	"net/http"

	"github.com/jrsteele09/go-social-server/auth"
	"github.com/jrsteele09/go-social-server/internal/config"
	"github.com/jrsteele09/go-social-server/relay"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/pkg/errors"
)

// Services are the domain services the HTTP layer fronts.
type Services struct {
	Auth     *auth.AuthorizationService
	Profiles *users.ProfileService
	Hub      *relay.Hub
}

type Server struct {
	env      string // Environment (e.g. "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.AuthorizationService
	profiles *users.ProfileService
	hub      *relay.Hub
}

func New(config config.Config, services Services) (*Server, error) {
	if services.Auth == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if services.Profiles == nil {
		return nil, errors.New("[Server New] profile service is required")
	}
	if services.Hub == nil {
		return nil, errors.New("[Server New] relay hub is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		auth:     services.Auth,
		profiles: services.Profiles,
		hub:      services.Hub,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}
