package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/isdmx/coderun/config"
	"github.com/isdmx/coderun/sandbox"
)

// maxBodyBytes caps the size of an execute request body.
const maxBodyBytes = 1 << 20

// Server is the REST transport
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	logger     *zap.Logger
	executor   sandbox.Executor
	limiter    *rate.Limiter
}

// New creates a Server listening on the configured port
func New(cfg *config.Config, logger *zap.Logger, executor sandbox.Executor) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		executor: executor,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(RequestLogger(s.logger))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/languages", s.handleLanguages)
		r.With(RateLimit(s.limiter)).Post("/execute", s.handleExecute)
	})
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("starting REST server", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("REST server stopped", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown drains in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down REST server")
	return s.httpServer.Shutdown(ctx)
}
