package web

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/kevin-mills/kinect-face-tracking/pkg/hub"
	"github.com/kevin-mills/kinect-face-tracking/pkg/tracking"
	"github.com/kevin-mills/kinect-face-tracking/pkg/viewmodel"
)

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Position   viewmodel.DisplayPosition `json:"position"`
	TrackingID uint64                    `json:"tracking_id"`
	Tracking   bool                      `json:"tracking"`
}

// StatsResponse is the body of GET /api/stats
type StatsResponse struct {
	Tracker   tracking.Stats `json:"tracker"`
	Hub       hub.Stats      `json:"hub"`
	PackedHub hub.Stats      `json:"packed_hub"`
}

func (s *Server) snapshot() viewmodel.DisplayPosition {
	if s.display == nil {
		return viewmodel.DisplayPosition{Text: viewmodel.Label(0, 0)}
	}
	return s.display.Snapshot()
}

func (s *Server) trackerStats() tracking.Stats {
	if s.tracker == nil {
		return tracking.Stats{}
	}
	return s.tracker.Stats()
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.cfg.Version,
		"clients": s.positionHub.ClientCount() + s.packedHub.ClientCount(),
	})
}

// handleStatus returns the current display position
func (s *Server) handleStatus(c *fiber.Ctx) error {
	var id uint64
	if s.tracker != nil {
		id = s.tracker.CurrentTrackingID()
	}
	return c.JSON(StatusResponse{
		Position:   s.snapshot(),
		TrackingID: id,
		Tracking:   id != tracking.NoTrackingID,
	})
}

// handleStats returns pipeline and hub counters
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(StatsResponse{
		Tracker:   s.trackerStats(),
		Hub:       s.positionHub.Stats(),
		PackedHub: s.packedHub.Stats(),
	})
}

// handleMetrics renders counters in Prometheus text format
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	ts := s.trackerStats()
	clients := s.positionHub.ClientCount() + s.packedHub.ClientCount()
	return c.SendString(fmt.Sprintf(`# HELP facetrack_body_frames_total Body frames received
# TYPE facetrack_body_frames_total counter
facetrack_body_frames_total %d

# HELP facetrack_face_frames_total Face frames received
# TYPE facetrack_face_frames_total counter
facetrack_face_frames_total %d

# HELP facetrack_identity_switches_total Tracked body changes
# TYPE facetrack_identity_switches_total counter
facetrack_identity_switches_total %d

# HELP facetrack_positions_total Averaged positions emitted
# TYPE facetrack_positions_total counter
facetrack_positions_total %d

# HELP facetrack_window_samples Samples in the smoothing window
# TYPE facetrack_window_samples gauge
facetrack_window_samples %d

# HELP facetrack_position_clients Connected position clients
# TYPE facetrack_position_clients gauge
facetrack_position_clients %d
`, ts.BodyFrames, ts.FaceFrames, ts.IdentitySwitches, ts.PositionsEmitted,
		ts.BufferedSamples, clients))
}

// handlePositionWS streams position messages, starting with the current one.
// ?encoding=msgpack selects binary frames.
func (s *Server) handlePositionWS(c *websocket.Conn) {
	packed := c.Query("encoding") == "msgpack"
	target := s.positionHub
	if packed {
		target = s.packedHub
	}

	var greet *hub.Message
	if data, err := s.encodePosition(s.snapshot(), packed); err == nil {
		m := hub.NewJSONMessage(data)
		if packed {
			m = hub.NewBinaryMessage(data)
		}
		greet = &m
	}

	client := hub.NewClient(target, c, greet)
	if client == nil {
		return
	}
	client.Run()
}
