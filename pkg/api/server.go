package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/media"
	"github.com/platinummonkey/noticias/pkg/middleware"
	"github.com/platinummonkey/noticias/pkg/news"
	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/platinummonkey/noticias/pkg/rbac"
	"github.com/platinummonkey/noticias/pkg/users"
)

// Deps are the services the API is assembled from. Objects and AuthLimiter
// may be nil.
type Deps struct {
	Config      *config.Config
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Roles       *rbac.ValidatorRegistry
	Users       *users.Service
	News        *news.Service
	Objects     media.ObjectStore
	AuthLimiter middleware.Limiter
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	deps    Deps
}

// NewServer creates the API server and registers every route
func NewServer(deps Deps) *Server {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.Roles == nil {
		deps.Roles = rbac.NewValidatorRegistry()
	}

	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()

	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}

	// CORS sits outside the router so preflight requests never reach route
	// matching
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(deps.Logger),
		httputil.RecoveryMiddleware,
		httputil.LoggingMiddleware,
		httputil.CORSMiddleware(deps.Config.CORS.AllowedOrigins),
	}
	if deps.Config.Server.Compression {
		gz, err := httputil.GzipMiddleware(deps.Config.Server.GzipMinSize)
		if err != nil {
			deps.Logger.WithError(err).Warn("Serving uncompressed responses")
		} else {
			chain = append(chain, gz)
		}
	}
	s.handler = httputil.Chain(chain...)(s.router)
	s.handler = otelhttp.NewHandler(s.handler, "noticias",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	guard := rbac.NewGuard(s.deps.Logger, s.deps.Metrics)

	var authLimit func(http.Handler) http.Handler
	if s.deps.AuthLimiter != nil && s.deps.Config.RateLimit.Enabled {
		trusted, err := httputil.ParseTrustedProxies(s.deps.Config.RateLimit.TrustedProxies)
		if err != nil {
			s.deps.Logger.WithError(err).Warn("Ignoring trusted proxies; forwarding headers will not be used")
		}
		authLimit = middleware.RateLimit(s.deps.AuthLimiter, "auth", s.deps.Metrics, trusted)
	}

	s.router.HandleFunc("/api/config", s.getConfig).Methods("GET")

	s.RegisterRoutes(rbac.NewHandlers(s.deps.Roles))

	if s.deps.News != nil {
		s.RegisterRoutes(news.NewHandlers(s.deps.News, guard))
	}
	if s.deps.Users != nil {
		s.RegisterRoutes(users.NewHandlers(s.deps.Users, guard, authLimit))
	}
	s.RegisterRoutes(media.NewHandlers(s.deps.Objects, guard, s.deps.Config.Upload, s.deps.Metrics))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the route table, mainly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}
