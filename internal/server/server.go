package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/guildsight/guildsight/internal/events"
	"github.com/guildsight/guildsight/internal/handler"
	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/server/middleware"
	"github.com/guildsight/guildsight/internal/service"
	"github.com/guildsight/guildsight/internal/stats"
	"github.com/guildsight/guildsight/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int
	RateLimitWindow time.Duration
	UsageQueueSize  int
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimit:       120,
		RateLimitWindow: time.Minute,
		UsageQueueSize:  service.DefaultQueueSize,
		Version:         "dev",
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the
// credential store, the events store, and the aggregation engine.
type Server struct {
	cfg        Config
	router     chi.Router
	control    *store.Store
	events     *events.Store
	auth       *service.Authenticator
	recorder   *service.Recorder
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, control *store.Store, ev *events.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		control:  control,
		events:   ev,
		auth:     service.NewAuthenticator(control, logger),
		recorder: service.NewRecorder(control, logger, cfg.UsageQueueSize),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RateLimitByToken(s.cfg.RateLimit, s.cfg.RateLimitWindow))

	// --- Health checks (no auth required) ---
	sysHandler := handler.NewSystemHandler(s.control, s.events, s.cfg.Version)
	r.Get("/healthz", sysHandler.Health)
	r.Get("/readyz", sysHandler.Ready)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.auth))
		r.Use(middleware.RecordUsage(s.recorder))

		// Credential management requires the admin role.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))

			adminHandler := handler.NewAdminHandler(s.control)
			r.Post("/credentials", adminHandler.CreateCredential)
			r.Get("/credentials", adminHandler.ListCredentials)
			r.Delete("/credentials/{id}", adminHandler.RevokeCredential)
			r.Get("/credentials/{id}/usage", adminHandler.CredentialUsage)
		})

		// Analytics is open to any valid credential.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleRead))

			analytics := handler.NewAnalyticsHandler(stats.NewEngine(s.events), s.events)
			r.Get("/users/{userID}/stats", analytics.UserStats)
			r.Get("/users/{userID}/messages", analytics.UserMessages)
			r.Get("/users/{userID}/voice-sessions", analytics.UserVoiceSessions)
			r.Get("/users/{userID}/activities", analytics.UserActivities)
			r.Get("/users/{userID}/presence", analytics.UserPresence)
			r.Get("/users/{userID}/custom-statuses", analytics.UserCustomStatuses)
			r.Get("/members", analytics.Members)
			r.Get("/channels/stats", analytics.TopChannels)
			r.Get("/channels/{channelID}/stats", analytics.ChannelStats)
			r.Get("/server/stats", analytics.ServerStats)
		})
	})

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests and flushing queued usage records before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Flush any queued usage records before the stores close.
	s.recorder.Close()
	if dropped := s.recorder.Dropped(); dropped > 0 {
		s.logger.Warn("usage records dropped during run", "count", dropped)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
