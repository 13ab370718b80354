package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/drumscribe/drumscribe-api/api/types"
	"github.com/drumscribe/drumscribe-api/internal/database"
	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	db                 *database.DB
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}

	maxUploadBytes int64

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(address string, maxUploadBytes int64) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	server := &Server{
		engine:         engine,
		rateLimiters:   &sync.Map{},
		cleanupStop:    make(chan struct{}),
		maxUploadBytes: maxUploadBytes,
		httpServer: &http.Server{
			Addr:           address,
			Handler:        engine,
			ReadTimeout:    10 * time.Minute, // large audio uploads
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
	}

	return server
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(db *database.DB) {
	s.db = db
	if s.dependencies == nil {
		s.dependencies = &types.Dependencies{}
	}
	s.dependencies.DB = db
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return err
	}

	return nil
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Logger())
	s.engine.Use(CORS())

	maxBytes := s.maxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 100 * 1024 * 1024
	}
	s.engine.Use(RequestSizeLimitWithSize(maxBytes))
}

// setupRoutes delegates to the main route registration
func (s *Server) setupRoutes() error {
	return RegisterRoutes(s.engine, s.dependencies, s.rateLimiters, s.cleanupStop, &s.cleanupInitialized)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	close(s.cleanupStop)

	return s.httpServer.Shutdown(ctx)
}
