// Package server is the web shell: a gin app that serves the page routes
// behind the route guards, the login/logout forms and an /api proxy that
// carries the stored bearer token and recovers from expired access tokens.
//
// @title authfront shell
// @version 1.0
// @description Browser-facing shell in front of the auth API
// @host localhost:5173
// @BasePath /
package server

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/config"
	"github.com/nidhal-dev/authfront/internal/router"
	"github.com/nidhal-dev/authfront/internal/session"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	app       *app.App
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	keepalive cron.Schedule
	version   string
}

// New creates a new server instance around a running client
func New(cfg *config.Config, a *app.App, zlog zerolog.Logger, version string) (*Server, error) {
	validate := validator.New()
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		_, err := session.ParseRole(value)
		return err == nil
	})

	var keepalive cron.Schedule
	if cfg.Shell.KeepaliveSchedule != "" {
		schedule, err := ParseSchedule(cfg.Shell.KeepaliveSchedule)
		if err != nil {
			return nil, err
		}
		keepalive = schedule
	}

	server := &Server{
		app:       a,
		config:    cfg,
		logger:    zlog.With().Str("component", "shell").Logger(),
		validator: validate,
		keepalive: keepalive,
		version:   version,
	}

	server.setupRouter()

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	origins := s.config.Shell.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/session", s.getSession)

	// Pages, each behind its route guard
	for _, route := range s.app.Router.Routes() {
		s.router.GET(route.Path, GuardMiddleware(s.app.Router, route.Name, s.logger), s.page)
	}
	s.router.NoRoute(s.notFound)

	// Forms
	s.router.POST("/login", GuardMiddleware(s.app.Router, router.RouteLogin, s.logger), s.login)
	s.router.POST("/logout", s.logout)
	s.router.POST("/signup", GuardMiddleware(s.app.Router, router.RouteSignup, s.logger), s.signup)
	s.router.POST("/forgotten-password", GuardMiddleware(s.app.Router, router.RouteForgottenPassword, s.logger), s.forgotPassword)
	s.router.POST("/reset-password", GuardMiddleware(s.app.Router, router.RouteResetPassword, s.logger), s.resetPassword)
	s.router.POST("/activate/:token", s.activate)

	// API proxy
	s.router.Any("/api/*path", s.proxy)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "authfront-shell",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Shell.Address

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	keepaliveCtx, cancelKeepalive := context.WithCancel(ctx)
	defer cancelKeepalive()
	if s.keepalive != nil {
		go RunKeepalive(keepaliveCtx, s.keepalive, s.app, s.logger)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error().Err(err).Msg("HTTP server error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	cancelKeepalive()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	if err := s.app.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing storage")
	} else {
		s.logger.Info().Msg("Storage closed successfully")
	}

	return nil
}
