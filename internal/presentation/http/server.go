package http

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo"

	"github.com/brinegold/jarvis-settlement/internal/container"
	"github.com/brinegold/jarvis-settlement/internal/presentation/http/middleware"
	"github.com/brinegold/jarvis-settlement/internal/presentation/http/routes"
	"github.com/brinegold/jarvis-settlement/pkg/logger"
)

// Server represents the HTTP server
type Server struct {
	container *container.Container
	server    *echo.Echo
}

// NewServer creates a new HTTP server
func NewServer(ct *container.Container) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	routes.SetupRoutes(e, ct)

	return &Server{
		container: ct,
		server:    e,
	}
}

// Start runs the server until an interrupt signal arrives, then shuts
// down gracefully.
func (s *Server) Start() error {
	port := s.container.Config.Server.Port
	if port == "" {
		port = "8080"
	}

	logger.GetLogger().Infof("Starting server on port %s", port)

	go func() {
		if err := s.server.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.GetLogger().Info("Shutting down server...")

	if s.container.Sweeper != nil && s.container.Sweeper.IsRunning() {
		s.container.Sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.GetLogger().WithError(err).Fatal("Server forced to shutdown")
	}

	logger.GetLogger().Info("Server exited")
	return nil
}
