// Package web serves the tracked face position to browsers and tools.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/kevin-mills/kinect-face-tracking/internal/log"
	"github.com/kevin-mills/kinect-face-tracking/pkg/hub"
	"github.com/kevin-mills/kinect-face-tracking/pkg/protocol"
	"github.com/kevin-mills/kinect-face-tracking/pkg/tracking"
	"github.com/kevin-mills/kinect-face-tracking/pkg/viewmodel"
)

// TrackerStatus is the part of the tracker the server reports on
type TrackerStatus interface {
	CurrentTrackingID() uint64
	Stats() tracking.Stats
}

// Display is the on-screen position source
type Display interface {
	Snapshot() viewmodel.DisplayPosition
}

// RouteMounter adds extra routes, such as the inbound sensor endpoint
type RouteMounter interface {
	RegisterRoutes(router fiber.Router)
	RegisterAPIRoutes(api fiber.Router)
}

// Config configures the server
type Config struct {
	Addr    string
	Version string
	Debug   bool
}

// Server is the position web server
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	tracker TrackerStatus
	display Display

	// Hubs for websocket broadcast: JSON text and msgpack binary
	positionHub *hub.Hub
	packedHub   *hub.Hub

	stopHub   context.CancelFunc
	startOnce sync.Once
}

// NewServer creates the server. mounts are registered before the
// built-in routes.
func NewServer(cfg Config, tracker TrackerStatus, display Display, mounts ...RouteMounter) *Server {
	s := &Server{
		cfg:         cfg,
		logger:      log.Component("web"),
		tracker:     tracker,
		display:     display,
		positionHub: hub.New("position"),
		packedHub:   hub.New("position-packed"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facetrack",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	for _, m := range mounts {
		m.RegisterRoutes(app)
		m.RegisterAPIRoutes(api)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)

	// WebSocket upgrade middleware
	app.Use("/ws/position", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/position", websocket.New(s.handlePositionWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests and extra routes
func (s *Server) App() *fiber.App {
	return s.app
}

// PositionHub returns the position broadcast hub
func (s *Server) PositionHub() *hub.Hub {
	return s.positionHub
}

// PackedHub returns the msgpack position broadcast hub
func (s *Server) PackedHub() *hub.Hub {
	return s.packedHub
}

// startHub runs the broadcast hubs once
func (s *Server) startHub() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopHub = cancel
		go s.positionHub.Run(ctx)
		go s.packedHub.Run(ctx)
	})
}

// Start starts the hub and serves on the configured address. It blocks
// until the server is shut down.
func (s *Server) Start() error {
	s.startHub()
	s.logger.Info("web server listening",
		"addr", s.cfg.Addr,
		"position_ws", "ws://"+displayHost(s.cfg.Addr)+"/ws/position")

	return s.app.Listen(s.cfg.Addr)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	s.startHub()
	return s.app.Listener(ln)
}

// PublishDisplay broadcasts a display position to /ws/position clients.
// Binary clients get the same envelope msgpack-encoded.
func (s *Server) PublishDisplay(dp viewmodel.DisplayPosition) {
	if data, err := s.encodePosition(dp, false); err != nil {
		s.logger.Warn("failed to encode position", "error", err)
	} else {
		s.positionHub.Broadcast(hub.NewJSONMessage(data))
	}

	if s.packedHub.ClientCount() == 0 {
		return
	}
	if data, err := s.encodePosition(dp, true); err != nil {
		s.logger.Warn("failed to pack position", "error", err)
	} else {
		s.packedHub.BroadcastBinary(data)
	}
}

func (s *Server) positionData(dp viewmodel.DisplayPosition) protocol.PositionData {
	var id uint64
	if s.tracker != nil {
		id = s.tracker.CurrentTrackingID()
	}
	return protocol.PositionData{
		X:          dp.X,
		Y:          dp.Y,
		Text:       dp.Text,
		Samples:    dp.Samples,
		TrackingID: id,
	}
}

// encodePosition renders a position message as JSON text or msgpack binary
func (s *Server) encodePosition(dp viewmodel.DisplayPosition, packed bool) ([]byte, error) {
	if packed {
		msg, err := protocol.NewPackedMessage(protocol.TypePosition, s.positionData(dp))
		if err != nil {
			return nil, err
		}
		return msg.Packed()
	}
	msg, err := protocol.NewPositionMessage(s.positionData(dp))
	if err != nil {
		return nil, err
	}
	return msg.Bytes()
}

// Shutdown stops the hub and gracefully stops the web server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopHub != nil {
		s.stopHub()
	}
	err := s.app.ShutdownWithContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("web server shutdown timed out")
	}
	return err
}

func displayHost(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
