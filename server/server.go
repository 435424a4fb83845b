package server

import (
	"context"
	"net/http"
	"time"

	"github.com/existflow/secureplan/internal/activity"
	"github.com/existflow/secureplan/internal/config"
	"github.com/existflow/secureplan/internal/db"
	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/visibility"
	"github.com/existflow/secureplan/internal/workflow"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the planning API server
type Server struct {
	db         *db.DB
	engine     *workflow.Engine
	tracker    *activity.Tracker
	profiles   *visibility.Service
	clock      model.Clock
	sessionTTL time.Duration
	echo       *echo.Echo
}

// Options tunes a Server. Zero values pick the defaults.
type Options struct {
	SessionTTL time.Duration
	Clock      model.Clock
}

// Open connects to the configured database and builds a server on top of it
func Open(cfg *config.Config) (*Server, error) {
	store, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	s := New(store, Options{SessionTTL: cfg.SessionTTL})

	if n, err := store.DeleteExpiredSessions(context.Background(), s.clock.Now()); err != nil {
		logger.Warn("Session cleanup failed", logger.Err(err))
	} else if n > 0 {
		logger.Info("Expired sessions removed", logger.F("count", n))
	}
	return s, nil
}

// New creates a server over an open database
func New(store *db.DB, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = model.SystemClock{}
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}

	s := &Server{
		db:         store,
		engine:     workflow.NewEngine(store, opts.Clock),
		tracker:    activity.NewTracker(store, store),
		profiles:   visibility.NewService(store, store, store, opts.Clock),
		clock:      opts.Clock,
		sessionTTL: opts.SessionTTL,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("1M"))

	// Health check
	e.GET("/health", s.handleHealth)

	// API v1
	api := e.Group("/api/v1")

	// Auth endpoints (public)
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/me", s.handleMe)
	protected.POST("/logout", s.handleLogout)

	protected.GET("/templates", s.handleTemplates)
	protected.POST("/projects/preview", s.handlePreview)
	protected.POST("/projects", s.handleCreateProject)
	protected.GET("/projects", s.handleListProjects)
	protected.GET("/projects/:id", s.handleGetProject)
	protected.DELETE("/projects/:id", s.handleDeleteProject)
	protected.POST("/projects/:id/complete", s.handleCompleteProject)

	protected.GET("/projects/:id/tasks", s.handleListTasks)
	protected.POST("/projects/:id/tasks/:task/move", s.handleMoveTask)
	protected.PATCH("/projects/:id/tasks/:task", s.handleUpdateTask)
	protected.POST("/projects/:id/tasks/:task/tags", s.handleAddTag)
	protected.POST("/projects/:id/tasks/:task/links", s.handleAddLink)
	protected.DELETE("/projects/:id/tasks/:task/links/:index", s.handleRemoveLink)

	protected.GET("/projects/:id/activities", s.handleListActivities)
	protected.POST("/projects/:id/activities/read", s.handleMarkRead)

	protected.GET("/users/:id/profile", s.handleProfile)
	protected.DELETE("/friends/:id", s.handleUnfriend)

	s.echo = e
}

// Close closes the database connection
func (s *Server) Close() error {
	return s.db.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	logger.Info("Server listening", logger.F("addr", addr), logger.F("db", string(s.db.Dialect())))
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.db.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
