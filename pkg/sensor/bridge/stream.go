package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kevin-mills/kinect-face-tracking/pkg/debug"
	"github.com/kevin-mills/kinect-face-tracking/pkg/protocol"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// frameBuffer is the per-stream channel depth; frames past it are dropped
const frameBuffer = 32

// Stats contains bridge statistics
type Stats struct {
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	BodyFrames       uint64 `json:"body_frames"`
	FaceFrames       uint64 `json:"face_frames"`
	ParseErrors      uint64 `json:"parse_errors"`
	Dropped          uint64 `json:"dropped"`
	Pongs            uint64 `json:"pongs"`
	LatencyMs        int64  `json:"latency_ms"`
}

// stream turns incoming protocol messages into sensor frames.
// handle and end must be called from a single reader goroutine.
type stream struct {
	logger *slog.Logger

	bodies chan sensor.BodyFrame
	faces  chan sensor.FaceFrame

	endOnce   sync.Once
	ended     chan struct{}
	firstOnce sync.Once
	first     chan struct{}

	// reply sends a message back to the host and counts it as sent
	reply func(*protocol.Message) error

	mu        sync.Mutex
	state     protocol.SensorStateData
	haveState bool
	bodyCount int

	received    atomic.Uint64
	sent        atomic.Uint64
	bodyFrames  atomic.Uint64
	faceFrames  atomic.Uint64
	parseErrors atomic.Uint64
	dropped     atomic.Uint64
	pongs       atomic.Uint64
	latencyMs   atomic.Int64
}

func newStream(logger *slog.Logger) *stream {
	return &stream{
		logger:    logger,
		bodies:    make(chan sensor.BodyFrame, frameBuffer),
		faces:     make(chan sensor.FaceFrame, frameBuffer),
		ended:     make(chan struct{}),
		first:     make(chan struct{}),
		bodyCount: sensor.DefaultBodyCount,
	}
}

// handle processes one websocket frame from the host
func (s *stream) handle(binary bool, data []byte) {
	s.received.Add(1)
	defer s.firstOnce.Do(func() { close(s.first) })

	msg, err := protocol.ParseFrame(binary, data)
	if err != nil {
		s.parseErrors.Add(1)
		s.logger.Warn("dropping unparsable message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeBodyFrame:
		frame, err := msg.GetBodyFrameData()
		if err != nil {
			s.parseErrors.Add(1)
			return
		}
		if frame.BodyCount > 0 {
			s.mu.Lock()
			s.bodyCount = frame.BodyCount
			s.mu.Unlock()
		}
		s.bodyFrames.Add(1)
		select {
		case s.bodies <- BodyFrameFromData(frame, messageTime(msg)):
		default:
			s.dropped.Add(1)
		}

	case protocol.TypeFaceFrame:
		frame, err := msg.GetFaceFrameData()
		if err != nil {
			s.parseErrors.Add(1)
			return
		}
		s.faceFrames.Add(1)
		select {
		case s.faces <- FaceFrameFromData(frame, messageTime(msg)):
		default:
			s.dropped.Add(1)
		}

	case protocol.TypeSensorState:
		state, err := msg.GetSensorStateData()
		if err != nil {
			s.parseErrors.Add(1)
			return
		}
		s.mu.Lock()
		s.state = *state
		s.haveState = true
		if state.BodyCount > 0 {
			s.bodyCount = state.BodyCount
		}
		s.mu.Unlock()
		s.logger.Info("sensor state", "available", state.Available, "open", state.Open, "name", state.Name)

	case protocol.TypePing:
		if s.reply == nil {
			return
		}
		id := ""
		if ping, err := msg.GetPingData(); err == nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		if err := s.reply(pong); err != nil {
			s.logger.Warn("failed to answer ping", "error", err)
		}

	case protocol.TypePong:
		pong, err := msg.GetPongData()
		if err != nil {
			s.parseErrors.Add(1)
			return
		}
		s.pongs.Add(1)
		s.latencyMs.Store(time.Now().UnixMilli() - pong.PingTS)
		debug.Log("sensor host pong", "id", pong.ID, "latency_ms", s.latencyMs.Load())

	default:
		debug.Log("ignoring message", "type", msg.Type, "error", protocol.ErrUnknownType)
	}
}

// sensorState returns the last announced state, if any
func (s *stream) sensorState() (protocol.SensorStateData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.haveState
}

func (s *stream) slots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodyCount
}

// end closes both frame channels exactly once
func (s *stream) end() {
	s.endOnce.Do(func() {
		close(s.bodies)
		close(s.faces)
		close(s.ended)
	})
}

func (s *stream) stats() Stats {
	return Stats{
		MessagesReceived: s.received.Load(),
		MessagesSent:     s.sent.Load(),
		BodyFrames:       s.bodyFrames.Load(),
		FaceFrames:       s.faceFrames.Load(),
		ParseErrors:      s.parseErrors.Load(),
		Dropped:          s.dropped.Load(),
		Pongs:            s.pongs.Load(),
		LatencyMs:        s.latencyMs.Load(),
	}
}

// awaitReady blocks until the host has sent its first message. A host that
// announced an unavailable sensor fails with sensor.ErrDeviceUnavailable.
func (s *stream) awaitReady(ctx context.Context) error {
	select {
	case <-s.first:
	case <-s.ended:
		return fmt.Errorf("%w: host disconnected before sending frames", sensor.ErrDeviceUnavailable)
	case <-ctx.Done():
		return fmt.Errorf("%w: no frames from host: %v", sensor.ErrDeviceUnavailable, ctx.Err())
	}

	if state, ok := s.sensorState(); ok && !state.Available {
		return fmt.Errorf("%w: host reports sensor not available", sensor.ErrDeviceUnavailable)
	}
	return nil
}
