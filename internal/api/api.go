// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/good-yellow-bee/pricedesk/internal/api/auth"
	"github.com/good-yellow-bee/pricedesk/internal/api/health"
	"github.com/good-yellow-bee/pricedesk/internal/api/middleware"
	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/importer"
	"github.com/good-yellow-bee/pricedesk/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address          string
	JWTSecret        []byte
	JWTIssuer        string
	LoginURL         string // Where clients re-authenticate after a 401
	HTTPTLSEnabled   bool
	HTTPTLSCertFile  string
	HTTPTLSKeyFile   string
	RateLimitPerIP   int // Requests per minute before authentication
	RateLimitPerUser int // Requests per minute per authenticated user
	RequestTimeout   time.Duration
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = auth.DefaultIssuer
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 300
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 100
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Registry *dashboard.Registry
	Pages    []*dashboard.Page
	Storage  storage.Storage
	// Importer submits bulk imports upstream. Nil disables the import route.
	Importer importer.Mutator
	Log      logrus.FieldLogger
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	log           logrus.FieldLogger
	registry      *dashboard.Registry
	pages         map[string]*dashboard.Page
	storage       storage.Storage
	importer      importer.Mutator
	jwt           *auth.JWTService
	ipLimiter     *middleware.RateLimiter
	userLimiter   *middleware.RateLimiter
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server.
func New(cfg *Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("dashboard registry is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	pages := make(map[string]*dashboard.Page, len(deps.Pages))
	for _, p := range deps.Pages {
		name := p.Definition().Name
		if _, ok := deps.Registry.Lookup(name); !ok {
			return nil, fmt.Errorf("page %q has no registered dashboard", name)
		}
		pages[name] = p
	}

	s := &Server{
		config:        cfg,
		log:           log.WithField("component", "api"),
		registry:      deps.Registry,
		pages:         pages,
		storage:       deps.Storage,
		importer:      deps.Importer,
		jwt:           auth.NewJWTService(cfg.JWTSecret, 0, cfg.JWTIssuer),
		ipLimiter:     middleware.NewRateLimiter(cfg.RateLimitPerIP, 0),
		userLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerUser, 0),
		healthHandler: health.NewHandler(),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.HTTPTLSEnabled {
		s.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	limiterCtx, stopLimiters := context.WithCancel(ctx)
	defer stopLimiters()
	go s.ipLimiter.Run(limiterCtx)
	go s.userLimiter.Run(limiterCtx)

	go func() {
		s.log.WithField("address", s.config.Address).Info("HTTP API listening")
		var err error
		if s.config.HTTPTLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.HTTPTLSCertFile, s.config.HTTPTLSKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker, critical bool) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c, critical)
	}
}
