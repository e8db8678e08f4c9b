// Package bridge connects to a remote host running the vendor sensor SDK.
//
// The SDK only exists on the host the camera is plugged into. A small
// forwarder there streams body and face frames as protocol messages over a
// websocket, and accepts "track" messages that re-point face alignment.
// Client dials out to such a forwarder; Endpoint lets it dial in.
package bridge

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/kevin-mills/kinect-face-tracking/pkg/protocol"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// BodyFrameFromData converts a wire body frame.
func BodyFrameFromData(data *protocol.BodyFrameData, ts time.Time) sensor.BodyFrame {
	bodies := make([]sensor.Body, len(data.Bodies))
	for i, b := range data.Bodies {
		bodies[i] = sensor.Body{
			Tracked:    b.Tracked,
			TrackingID: b.TrackingID,
			SpineBase:  r3.Vector{X: b.SpineBase.X, Y: b.SpineBase.Y, Z: b.SpineBase.Z},
		}
	}
	return sensor.BodyFrame{Bodies: bodies, Timestamp: ts}
}

// FaceFrameFromData converts a wire face frame.
func FaceFrameFromData(data *protocol.FaceFrameData, ts time.Time) sensor.FaceFrame {
	return sensor.FaceFrame{
		TrackingID: data.TrackingID,
		Tracked:    data.Tracked,
		Orientation: sensor.Orientation{
			X: data.Orientation.X,
			Y: data.Orientation.Y,
			Z: data.Orientation.Z,
			W: data.Orientation.W,
		},
		Timestamp: ts,
	}
}

// BodyDataFromFrame converts a body frame to its wire form.
func BodyDataFromFrame(frame sensor.BodyFrame) []protocol.BodyData {
	out := make([]protocol.BodyData, len(frame.Bodies))
	for i, b := range frame.Bodies {
		out[i] = protocol.BodyData{
			Tracked:    b.Tracked,
			TrackingID: b.TrackingID,
			SpineBase:  protocol.Vector3{X: b.SpineBase.X, Y: b.SpineBase.Y, Z: b.SpineBase.Z},
		}
	}
	return out
}

// messageTime returns the sender timestamp, or now if it was omitted.
func messageTime(msg *protocol.Message) time.Time {
	if msg.Timestamp == 0 {
		return time.Now()
	}
	return time.UnixMilli(msg.Timestamp)
}
