package bridge

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kevin-mills/kinect-face-tracking/pkg/protocol"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

func httptestRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBodyFrameConversion(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	frame := BodyFrameFromData(&protocol.BodyFrameData{Bodies: sampleBodies(), BodyCount: 6}, ts)

	assert.Equal(t, ts, frame.Timestamp)
	assert.Len(t, frame.Bodies, 3)
	assert.False(t, frame.Bodies[1].Tracked)
	assert.InDelta(t, 2.5, frame.Bodies[0].SpineBase.Z, 1e-9)

	assert.Equal(t, sampleBodies(), BodyDataFromFrame(frame))
}

func TestFaceFrameConversion(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	face := FaceFrameFromData(&protocol.FaceFrameData{
		TrackingID:  9,
		Tracked:     true,
		Orientation: protocol.Quaternion{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9},
	}, ts)

	assert.Equal(t, sensor.FaceFrame{
		TrackingID:  9,
		Tracked:     true,
		Orientation: sensor.Orientation{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9},
		Timestamp:   ts,
	}, face)
}

func TestMessageTime(t *testing.T) {
	msg := &protocol.Message{Timestamp: 1700000000123}
	assert.Equal(t, time.UnixMilli(1700000000123), messageTime(msg))

	before := time.Now()
	got := messageTime(&protocol.Message{})
	assert.False(t, got.Before(before))
}

func TestStreamCountsParseErrors(t *testing.T) {
	s := newStream(testLogger())
	s.handle(false, []byte("not json"))
	s.handle(true, []byte{0xc1})

	stats := s.stats()
	assert.Equal(t, uint64(2), stats.MessagesReceived)
	assert.Equal(t, uint64(2), stats.ParseErrors)
}

func TestStreamDropsWhenFull(t *testing.T) {
	s := newStream(testLogger())
	msg, err := protocol.NewFaceFrameMessage(1, true, protocol.Quaternion{W: 1})
	assert.NoError(t, err)
	data, err := msg.Bytes()
	assert.NoError(t, err)

	for i := 0; i < frameBuffer+5; i++ {
		s.handle(false, data)
	}

	assert.Equal(t, uint64(5), s.stats().Dropped)
	assert.Len(t, s.faces, frameBuffer)
}
