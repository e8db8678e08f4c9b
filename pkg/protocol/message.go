// Package protocol defines the WebSocket message types exchanged with the
// sensor SDK host and with position stream clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// SDK host → service messages
	TypeBodyFrame   MessageType = "body_frame"   // Skeletal body snapshot
	TypeFaceFrame   MessageType = "face_frame"   // HD face alignment result
	TypeSensorState MessageType = "sensor_state" // Sensor availability

	// Service → SDK host messages
	TypeTrack MessageType = "track" // Re-point face alignment at a body

	// Service → UI clients
	TypePosition MessageType = "position" // Smoothed screen position

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Sentinel errors
var (
	// ErrUnknownType is returned for message types this side does not handle.
	ErrUnknownType = errors.New("protocol: unknown message type")

	// ErrWrongEncoding is returned when a packed message is JSON-encoded or vice versa.
	ErrWrongEncoding = errors.New("protocol: message payload has a different encoding")
)

// Message is the base wrapper for all WebSocket messages.
//
// Text frames carry the JSON form. Binary frames carry the same envelope
// msgpack-encoded; for those Data is empty and the payload is kept packed.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`

	packed msgpack.RawMessage
}

// packedEnvelope is the binary (msgpack) wire form of Message
type packedEnvelope struct {
	Type      MessageType        `msgpack:"type"`
	Timestamp int64              `msgpack:"ts,omitempty"`
	Data      msgpack.RawMessage `msgpack:"data,omitempty"`
}

// NewMessage creates a new JSON message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// NewPackedMessage creates a new msgpack message with the current timestamp
func NewPackedMessage(msgType MessageType, data interface{}) (*Message, error) {
	var packed msgpack.RawMessage
	if data != nil {
		var err error
		packed, err = packPayload(data)
		if err != nil {
			return nil, fmt.Errorf("failed to pack message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		packed:    packed,
	}, nil
}

// IsPacked reports whether the payload is msgpack-encoded
func (m *Message) IsPacked() bool {
	return m.packed != nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.packed != nil {
		return unpackPayload(m.packed, v)
	}
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	if m.packed != nil {
		return nil, ErrWrongEncoding
	}
	return json.Marshal(m)
}

// Packed returns the msgpack-encoded message
func (m *Message) Packed() ([]byte, error) {
	if m.Data != nil {
		return nil, ErrWrongEncoding
	}
	return msgpack.Marshal(packedEnvelope{
		Type:      m.Type,
		Timestamp: m.Timestamp,
		Data:      m.packed,
	})
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// ParsePacked parses a msgpack message from bytes
func ParsePacked(data []byte) (*Message, error) {
	var env packedEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse packed message: %w", err)
	}
	return &Message{
		Type:      env.Type,
		Timestamp: env.Timestamp,
		packed:    env.Data,
	}, nil
}

// ParseFrame parses a websocket frame, picking the codec from the frame kind
func ParseFrame(binary bool, data []byte) (*Message, error) {
	if binary {
		return ParsePacked(data)
	}
	return ParseMessage(data)
}

// =============================================================================
// SDK host → service message types
// =============================================================================

// Vector3 is a camera-space point in meters
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a face orientation
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// BodyData is one body slot
type BodyData struct {
	Tracked    bool    `json:"tracked"`
	TrackingID uint64  `json:"tracking_id"`
	SpineBase  Vector3 `json:"spine_base"`
}

// BodyFrameData contains all body slots of one frame
type BodyFrameData struct {
	Bodies    []BodyData `json:"bodies"`
	BodyCount int        `json:"body_count,omitempty"`
}

// FaceFrameData contains one face alignment result
type FaceFrameData struct {
	TrackingID  uint64     `json:"tracking_id"`
	Tracked     bool       `json:"tracked"`
	Orientation Quaternion `json:"orientation"`
}

// SensorStateData reports whether the sensor is usable
type SensorStateData struct {
	Available bool   `json:"available"`
	Open      bool   `json:"open"`
	BodyCount int    `json:"body_count,omitempty"`
	Name      string `json:"name,omitempty"`
}

// =============================================================================
// Service → SDK host message types
// =============================================================================

// TrackData selects the body the face source follows
type TrackData struct {
	TrackingID uint64 `json:"tracking_id"`
}

// =============================================================================
// Service → UI message types
// =============================================================================

// PositionData is one smoothed, display-biased position
type PositionData struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	Samples    int     `json:"samples"`
	TrackingID uint64  `json:"tracking_id"`
}

// =============================================================================
// Bidirectional message types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
