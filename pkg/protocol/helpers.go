package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewBodyFrameMessage creates a body frame message
func NewBodyFrameMessage(bodies []BodyData, bodyCount int) (*Message, error) {
	return NewMessage(TypeBodyFrame, BodyFrameData{
		Bodies:    bodies,
		BodyCount: bodyCount,
	})
}

// NewFaceFrameMessage creates a face frame message
func NewFaceFrameMessage(trackingID uint64, tracked bool, orientation Quaternion) (*Message, error) {
	return NewMessage(TypeFaceFrame, FaceFrameData{
		TrackingID:  trackingID,
		Tracked:     tracked,
		Orientation: orientation,
	})
}

// NewSensorStateMessage creates a sensor state message
func NewSensorStateMessage(available, open bool, bodyCount int) (*Message, error) {
	return NewMessage(TypeSensorState, SensorStateData{
		Available: available,
		Open:      open,
		BodyCount: bodyCount,
	})
}

// NewTrackMessage creates a track command message
func NewTrackMessage(trackingID uint64) (*Message, error) {
	return NewMessage(TypeTrack, TrackData{TrackingID: trackingID})
}

// NewPositionMessage creates a position update message
func NewPositionMessage(p PositionData) (*Message, error) {
	return NewMessage(TypePosition, p)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // the envelope ts carries the send time
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetBodyFrameData extracts body frame data from a message
func (m *Message) GetBodyFrameData() (*BodyFrameData, error) {
	var data BodyFrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFaceFrameData extracts face frame data from a message
func (m *Message) GetFaceFrameData() (*FaceFrameData, error) {
	var data FaceFrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSensorStateData extracts sensor state from a message
func (m *Message) GetSensorStateData() (*SensorStateData, error) {
	var data SensorStateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTrackData extracts the track command from a message
func (m *Message) GetTrackData() (*TrackData, error) {
	var data TrackData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPositionData extracts position data from a message
func (m *Message) GetPositionData() (*PositionData, error) {
	var data PositionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
