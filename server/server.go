// Package server exposes the gateway over HTTP with fiber and streams gateway
// events to dashboards over socket.io.
package server

import (
	"sync"
	"time"

	"github.com/brightsphere/ai-gateway/gateway"
	"github.com/brightsphere/ai-gateway/interactions"
	"github.com/brightsphere/ai-gateway/rate_limit"
	"github.com/brightsphere/ai-gateway/utils/logger"
	"github.com/brightsphere/ai-gateway/videos"
	socketio "github.com/doquangtan/socketio/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config wires the server to the gateway components.
type Config struct {
	Orchestrator *gateway.Orchestrator
	Limiter      *rate_limit.Limiter
	Recorder     *interactions.Recorder
	// Videos is optional; without it video search answers 503.
	Videos    videos.Searcher
	Logger    logger.Logger
	JWTSecret string
	// EnableEventFeed mounts socket.io at /socket.io.
	EnableEventFeed bool
	ShutdownTimeout time.Duration
}

// Server is the HTTP front of the gateway.
type Server struct {
	app    *fiber.App
	config Config
	logger logger.Logger

	io            *socketio.Io
	broadcastOnce sync.Once
}

// New builds the fiber app and registers every route.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		config: config,
		logger: config.Logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "brightsphere-ai-gateway",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(s.requestID)
	s.app.Use(s.requestLogger)
	s.app.Use(recover.New())
	s.app.Use(allowAnyOrigin)
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "authorization, x-client-info, apikey, content-type, x-request-id",
	}))

	if config.EnableEventFeed {
		s.setupEventFeed()
	}

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/stats", s.handleStats)

	s.app.Post("/ai/complete", s.identify, s.handleComplete)
	s.app.Post("/functions/v1/ai-assistant", s.identify, s.handleComplete)
	s.app.Post("/video/search", s.identify, s.handleVideoSearch)
	s.app.Post("/functions/v1/youtube-search", s.identify, s.handleVideoSearch)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts broadcasting events and serves HTTP until Shutdown.
func (s *Server) Listen(addr string) error {
	if s.io != nil {
		s.broadcastOnce.Do(func() {
			go s.broadcastEvents()
		})
	}

	s.logger.Printf("Gateway listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(s.config.ShutdownTimeout)
}
