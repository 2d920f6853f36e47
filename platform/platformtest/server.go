// Package platformtest provides an in-memory fake of the Conversimple
// platform REST API, for tests and local development against
// package platform.
//
//	srv := platformtest.NewServer()
//	defer srv.Close()
//
//	client, _ := platform.New(
//	    platform.WithEndpoint(srv.URL),
//	    platform.WithAPIKey(platformtest.DefaultAPIKey),
//	)
package platformtest

import (
	"net/http"
	"net/http/httptest"

	"github.com/conversimple/conversimple-go/platform"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// DefaultAPIKey is accepted by a fake platform built without WithAPIKey.
const DefaultAPIKey = "cs_test_0123456789abcdef"

// Default rate limit: generous enough that tests never hit it by accident.
const (
	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 1000
)

// Option configures a fake platform.
type Option func(*options)

type options struct {
	apiKey string
	logger *zap.Logger
	rps    float64
	burst  int
}

func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithLogger enables request logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRateLimit sets the token bucket shared by all requests.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// Platform is the fake API as an http.Handler.
type Platform struct {
	Store   *Store
	Limiter *RateLimiter
	Metrics *Metrics
	router  *chi.Mux
}

// New builds a fake platform with an empty store.
func New(opts ...Option) *Platform {
	o := options{
		apiKey: DefaultAPIKey,
		logger: zap.NewNop(),
		rps:    DefaultRateLimitRPS,
		burst:  DefaultRateLimitBurst,
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Platform{
		Store:   NewStore(o.apiKey),
		Limiter: NewRateLimiter(o.rps, o.burst),
		Metrics: &Metrics{},
	}
	p.router = newRouter(p, o.logger)
	return p
}

func (p *Platform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

func newRouter(p *Platform, logger *zap.Logger) *chi.Mux {
	h := &handler{store: p.Store, limiter: p.Limiter}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(Logging(logger))
	r.Use(p.Metrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(p.Limiter.Middleware)
		r.Use(APIKeyAuth(p.Store))

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.listAgents)
			r.Post("/", h.createAgent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getAgent)
				r.Put("/", h.updateAgent)
				r.Delete("/", h.deleteAgent)
				r.Get("/spec", h.agentSpec)
				r.Get("/generation-status", h.generationStatus)
				r.Post("/publish", h.publishAgent)
			})
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Get("/", h.listDeployments)
			r.Post("/", h.createDeployment)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getDeployment)
				r.Put("/", h.updateDeployment)
				r.Delete("/", h.deleteDeployment)
				r.Post("/activate", h.setDeploymentStatus(platform.DeploymentStatusActive))
				r.Post("/deactivate", h.setDeploymentStatus(platform.DeploymentStatusInactive))
			})
		})

		r.Route("/settings/api-key", func(r chi.Router) {
			r.Get("/", h.apiKeyInfo)
			r.Post("/rotate", h.rotateAPIKey)
			r.Get("/usage", h.apiKeyUsage)
		})
	})

	return r
}

// Server is a fake platform listening on a local httptest server.
type Server struct {
	*httptest.Server
	Platform *Platform
}

// NewServer starts a fake platform. Callers must Close it.
func NewServer(opts ...Option) *Server {
	p := New(opts...)
	return &Server{
		Server:   httptest.NewServer(p),
		Platform: p,
	}
}

// Store returns the server's state.
func (s *Server) Store() *Store {
	return s.Platform.Store
}
