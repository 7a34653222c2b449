package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyperdeck/bridge/config"
	"github.com/hyperdeck/bridge/internal/bridge"
	"github.com/hyperdeck/bridge/internal/safety"
	"github.com/hyperdeck/bridge/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	cfg           *config.Config
	router        *gin.Engine
	handlers      *Handlers
	setupHandlers *SetupHandlers
	auth          *AuthService
	limiter       *RateLimiter
	filter        *safety.Filter
	tracker       *tasks.Tracker
	httpServer    *http.Server
}

// New creates a new server instance over an already-wired bridge.
func New(cfg *config.Config, b *bridge.Bridge, tracker *tasks.Tracker, filter *safety.Filter, store *config.SettingsStore) *Server {
	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	auth := NewAuthService(cfg.APIKey, cfg.JWTSecret)
	limiter := NewRateLimiter(cfg.RateLimitRPS)
	handlers := NewHandlers(cfg, b, tracker)
	setupHandlers := NewSetupHandlers(cfg, store)

	s := &Server{
		cfg:           cfg,
		router:        router,
		handlers:      handlers,
		setupHandlers: setupHandlers,
		auth:          auth,
		limiter:       limiter,
		filter:        filter,
		tracker:       tracker,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(RecoveryMiddleware())

	// Logger middleware
	s.router.Use(LoggerMiddleware())

	// CORS middleware
	s.router.Use(CORSMiddleware(s.cfg.AllowedOrigins))

	// Rate limiting
	s.router.Use(RateLimitMiddleware(s.limiter))
}

func (s *Server) setupRoutes() {
	// Health check (no auth)
	s.router.GET("/health", s.handlers.HealthCheck)

	// Setup routes (no auth required in setup mode)
	if s.cfg.SetupMode {
		setup := s.router.Group("/setup")
		{
			setup.GET("/status", s.setupHandlers.GetStatus)
			setup.POST("/generate", s.setupHandlers.GenerateKey)
			setup.POST("/save", s.setupHandlers.SaveKey)
		}
	}

	// API routes (require auth)
	api := s.router.Group("/api")
	api.Use(AuthMiddleware(s.auth))
	{
		// Channel catalogue and dispatch
		api.GET("/channels", s.handlers.ListChannels)
		api.POST("/invoke/:channel", s.handlers.InvokeChannel)
		api.POST("/send/:channel", s.handlers.SendChannel)

		// Real-time events (SSE)
		api.GET("/events", s.handlers.StreamEvents)

		// Tasks
		api.GET("/tasks", s.handlers.ListTasks)
		api.POST("/tasks/:id/cancel", s.handlers.CancelTask)
		api.POST("/tasks/clear-completed", s.handlers.ClearCompletedTasks)

		// Settings (authenticated)
		api.GET("/settings", s.setupHandlers.GetSettings)
		api.PUT("/settings", s.setupHandlers.UpdateSettings)
		api.POST("/settings/generate-key", s.setupHandlers.GenerateKey)
		api.POST("/settings/api-key", s.setupHandlers.SaveKey)

		// Daemon status
		api.GET("/status", s.setupHandlers.GetStatus)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	// Policy hot reload, when a policy file is configured
	reloadCtx, stopReload := context.WithCancel(context.Background())
	defer stopReload()
	if s.cfg.PolicyFile != "" {
		reloader, err := NewReloader(s.filter, s.cfg.PolicyFile)
		if err != nil {
			log.Printf("Policy hot reload disabled: %v", err)
		} else {
			go func() {
				if err := reloader.Run(reloadCtx); err != nil {
					log.Printf("Policy watcher stopped: %v", err)
				}
			}()
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("Starting Hyperdeck Bridge on %s", s.cfg.Addr())

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Clean up
	s.tracker.Close()

	log.Println("Server stopped")
	return nil
}

// Router returns the Gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
