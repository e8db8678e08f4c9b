package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kevin-mills/kinect-face-tracking/internal/log"
	"github.com/kevin-mills/kinect-face-tracking/pkg/protocol"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// ClientConfig configures an outbound bridge connection
type ClientConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadyTimeout     time.Duration // wait for the host's first message
	WriteTimeout     time.Duration
	PingInterval     time.Duration // zero disables keepalive pings
	Packed           bool          // send commands as msgpack binary frames
}

// DefaultClientConfig returns defaults for a forwarder at url
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:              url,
		HandshakeTimeout: 5 * time.Second,
		ReadyTimeout:     5 * time.Second,
		WriteTimeout:     2 * time.Second,
		PingInterval:     15 * time.Second,
	}
}

// Client is a sensor.Device backed by a forwarder it dials.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger
	s      *stream

	mu      sync.Mutex
	conn    *websocket.Conn
	closed  bool
	writeMu sync.Mutex
	readers sync.WaitGroup

	closeOnce sync.Once
}

// NewClient creates a client. Nothing is dialled until Open.
func NewClient(cfg ClientConfig) *Client {
	logger := log.Component("bridge").With("url", cfg.URL)
	c := &Client{
		cfg:    cfg,
		logger: logger,
		s:      newStream(logger),
	}
	c.s.reply = c.send
	return c
}

// Open dials the forwarder and waits until it starts talking.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return sensor.ErrDeviceClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", sensor.ErrDeviceUnavailable, c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return sensor.ErrDeviceClosed
	}
	c.conn = conn
	c.readers.Add(1)
	c.mu.Unlock()

	c.logger.Info("connected to sensor host")
	go c.readLoop(conn)

	readyCtx := ctx
	if c.cfg.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		readyCtx, cancel = context.WithTimeout(ctx, c.cfg.ReadyTimeout)
		defer cancel()
	}
	if err := c.s.awaitReady(readyCtx); err != nil {
		c.Close()
		return err
	}

	if c.cfg.PingInterval > 0 {
		c.readers.Add(1)
		go c.keepalive()
	}
	return nil
}

// keepalive pings the forwarder until the connection ends
func (c *Client) keepalive() {
	defer c.readers.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-c.s.ended:
			return
		case <-ticker.C:
			n++
			if err := c.Ping(strconv.FormatUint(n, 10)); err != nil {
				c.logger.Warn("keepalive ping failed", "error", err)
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.readers.Done()
	defer c.s.end()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Warn("sensor host connection lost", "error", err)
			}
			return
		}
		c.s.handle(mt == websocket.BinaryMessage, data)
	}
}

// send writes one message using the configured encoding
func (c *Client) send(msg *protocol.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return sensor.ErrNotOpen
	}

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

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := conn.WriteMessage(mt, data); err != nil {
		return err
	}
	c.s.sent.Add(1)
	return nil
}

// SetFaceTrackingID asks the forwarder to re-point face alignment.
func (c *Client) SetFaceTrackingID(id uint64) error {
	var msg *protocol.Message
	var err error
	if c.cfg.Packed {
		msg, err = protocol.NewPackedMessage(protocol.TypeTrack, protocol.TrackData{TrackingID: id})
	} else {
		msg, err = protocol.NewTrackMessage(id)
	}
	if err != nil {
		return err
	}
	return c.send(msg)
}

// Ping sends a ping. The forwarder's pong latency shows up in Stats.
func (c *Client) Ping(id string) error {
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return err
	}
	return c.send(msg)
}

// Close disconnects from the forwarder. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			c.s.end()
			return
		}

		c.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
		c.readers.Wait()
		c.logger.Info("disconnected from sensor host")
	})
	return nil
}

// BodyFrames delivers body frames from the host.
func (c *Client) BodyFrames() <-chan sensor.BodyFrame { return c.s.bodies }

// FaceFrames delivers face frames from the host.
func (c *Client) FaceFrames() <-chan sensor.FaceFrame { return c.s.faces }

// BodyCount returns the slot count the host last announced.
func (c *Client) BodyCount() int { return c.s.slots() }

// SensorState returns the last state the host announced.
func (c *Client) SensorState() (protocol.SensorStateData, bool) { return c.s.sensorState() }

// Stats returns bridge counters.
func (c *Client) Stats() Stats { return c.s.stats() }
