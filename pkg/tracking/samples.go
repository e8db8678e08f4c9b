package tracking

import "time"

// OrientationSample is the x/y part of a face orientation.
type OrientationSample struct {
	X, Y float64
}

// PixelSample is an orientation mapped into container pixels.
type PixelSample struct {
	X, Y float64
}

// Position is the windowed average of pixel samples, emitted on a fixed cadence.
type Position struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Samples   int       `json:"samples"` // 0 when the window was empty
	Timestamp time.Time `json:"ts"`
}
