// Package api is the thin HTTP layer over the orchestration engine. It
// validates request shape, invokes the engine, and maps tagged turn
// errors to status codes; everything interesting happens below it.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/repchat/internal/engine"
	"github.com/repchat/internal/logging"
	"github.com/repchat/internal/store"
)

// Server represents the API server
type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	store  store.Store
	port   int
}

// NewServer creates a new API server over the engine and store
func NewServer(port int, eng *engine.Engine, st store.Store) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(20))))

	server := &Server{
		echo:   e,
		engine: eng,
		store:  st,
		port:   port,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	api := s.echo.Group("/api")
	api.POST("/chat", s.postChat)
	api.GET("/conversations/:id", s.getConversation)
}

// Start begins the API server and blocks until interrupted
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			log := logging.Component("api")
			log.Fatal().Err(err).Msg("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
