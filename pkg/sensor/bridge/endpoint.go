package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kevin-mills/kinect-face-tracking/internal/log"
	"github.com/kevin-mills/kinect-face-tracking/pkg/protocol"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// ErrAlreadyConnected is returned to a second host while one is attached.
var ErrAlreadyConnected = errors.New("bridge: sensor host already connected")

// HostInfo describes the attached sensor host
type HostInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// hostConn is owned by its handler. The conn is only touched under mu while
// alive is set; the handler clears it before returning the conn to the pool.
type hostConn struct {
	info  HostInfo
	conn  *websocket.Conn
	mu    sync.Mutex
	alive bool
}

// release marks the conn as handed back to the websocket pool
func (h *hostConn) release() {
	h.mu.Lock()
	h.alive = false
	h.mu.Unlock()
}

// hangUp sends a close frame and closes the conn if it is still live
func (h *hostConn) hangUp(code int, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.alive {
		return
	}
	h.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(time.Second))
	h.conn.Close()
}

func (h *hostConn) send(msg *protocol.Message) error {
	mt := websocket.TextMessage
	var data []byte
	var err error
	if msg.IsPacked() {
		mt = websocket.BinaryMessage
		data, err = msg.Packed()
	} else {
		data, err = msg.Bytes()
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.alive {
		return sensor.ErrNotOpen
	}
	return h.conn.WriteMessage(mt, data)
}

// Endpoint is a sensor.Device fed by a forwarder that dials in.
//
// Only one host may be attached. When it disconnects the frame channels
// close, same as a lost SDK connection.
type Endpoint struct {
	logger *slog.Logger
	s      *stream

	mu        sync.Mutex
	host      *hostConn
	closed    bool
	attached  chan struct{}
	attachOne sync.Once
	closeOnce sync.Once
}

// NewEndpoint creates an endpoint. Mount it with RegisterRoutes.
func NewEndpoint() *Endpoint {
	logger := log.Component("bridge")
	e := &Endpoint{
		logger:   logger,
		s:        newStream(logger),
		attached: make(chan struct{}),
	}
	e.s.reply = e.send
	return e
}

// RegisterRoutes registers the sensor host routes
func (e *Endpoint) RegisterRoutes(router fiber.Router) {
	router.Use("/ws/sensor", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws/sensor", websocket.New(e.handleHost))
	router.Get("/ws/sensor/:id", websocket.New(e.handleHost))
}

// RegisterAPIRoutes registers host status routes
func (e *Endpoint) RegisterAPIRoutes(api fiber.Router) {
	api.Get("/sensor", func(c *fiber.Ctx) error {
		state, announced := e.s.sensorState()
		info, connected := e.Host()
		return c.JSON(fiber.Map{
			"connected": connected,
			"host":      info,
			"announced": announced,
			"state":     state,
			"stats":     e.Stats(),
		})
	})
}

func (e *Endpoint) handleHost(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	host := &hostConn{
		info:  HostInfo{ID: id, Connected: time.Now(), LastSeen: time.Now()},
		conn:  c,
		alive: true,
	}

	e.mu.Lock()
	var reject error
	switch {
	case e.closed:
		reject = sensor.ErrDeviceClosed
	case e.host != nil:
		reject = ErrAlreadyConnected
	default:
		e.host = host
	}
	e.mu.Unlock()

	if reject != nil {
		e.logger.Warn("rejecting sensor host", "host_id", id, "reason", reject)
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reject.Error()),
			time.Now().Add(time.Second))
		return
	}

	e.logger.Info("sensor host connected", "host_id", id, "remote", c.RemoteAddr().String())
	e.attachOne.Do(func() { close(e.attached) })

	defer func() {
		host.release()
		e.mu.Lock()
		e.closed = true
		e.host = nil
		e.mu.Unlock()
		e.s.end()
		e.logger.Info("sensor host disconnected", "host_id", id)
	}()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			e.mu.Lock()
			closed := e.closed
			e.mu.Unlock()
			if !closed {
				e.logger.Warn("sensor host read error", "host_id", id, "error", err)
			}
			return
		}

		host.mu.Lock()
		host.info.LastSeen = time.Now()
		host.mu.Unlock()

		e.s.handle(mt == websocket.BinaryMessage, data)
	}
}

// Open waits until a host attaches and starts talking, or ctx ends.
func (e *Endpoint) Open(ctx context.Context) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return sensor.ErrDeviceClosed
	}

	select {
	case <-e.attached:
	case <-ctx.Done():
		return fmt.Errorf("%w: no sensor host connected: %v", sensor.ErrDeviceUnavailable, ctx.Err())
	}
	return e.s.awaitReady(ctx)
}

func (e *Endpoint) send(msg *protocol.Message) error {
	e.mu.Lock()
	host := e.host
	e.mu.Unlock()
	if host == nil {
		return sensor.ErrNotOpen
	}
	if err := host.send(msg); err != nil {
		return err
	}
	e.s.sent.Add(1)
	return nil
}

// SetFaceTrackingID asks the attached host to re-point face alignment.
func (e *Endpoint) SetFaceTrackingID(id uint64) error {
	msg, err := protocol.NewTrackMessage(id)
	if err != nil {
		return err
	}
	return e.send(msg)
}

// Close detaches the host and ends both frame streams.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		host := e.host
		e.mu.Unlock()

		if host == nil {
			e.s.end()
			return
		}

		host.hangUp(websocket.CloseGoingAway, "shutting down")
		<-e.s.ended
	})
	return nil
}

// Host returns the attached host, if any.
func (e *Endpoint) Host() (HostInfo, bool) {
	e.mu.Lock()
	host := e.host
	e.mu.Unlock()
	if host == nil {
		return HostInfo{}, false
	}
	host.mu.Lock()
	defer host.mu.Unlock()
	return host.info, true
}

// BodyFrames delivers body frames from the host.
func (e *Endpoint) BodyFrames() <-chan sensor.BodyFrame { return e.s.bodies }

// FaceFrames delivers face frames from the host.
func (e *Endpoint) FaceFrames() <-chan sensor.FaceFrame { return e.s.faces }

// BodyCount returns the slot count the host last announced.
func (e *Endpoint) BodyCount() int { return e.s.slots() }

// Stats returns bridge counters.
func (e *Endpoint) Stats() Stats { return e.s.stats() }
