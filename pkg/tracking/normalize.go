package tracking

import "math"

// Normalizer maps orientation samples into container pixel coordinates.
//
// Sensor x (nod) drives the screen's vertical axis and sensor y (shake)
// the horizontal one. Both are inverted, so the negative extremes of the
// orientation land on the container's bottom-right corner.
type Normalizer struct {
	width, height  float64
	xLimit, yLimit float64
	xMulti, yMulti float64
}

// NewNormalizer creates a normalizer for a fixed container size.
func NewNormalizer(width, height float64, cfg Config) *Normalizer {
	return &Normalizer{
		width:  width,
		height: height,
		xLimit: cfg.XLimit,
		yLimit: cfg.YLimit,
		xMulti: (height / 2) / (cfg.XLimit * 1000),
		yMulti: (width / 2) / (cfg.YLimit * 1000),
	}
}

// Normalize converts one orientation sample. The result is truncated
// toward zero, not rounded. NaN components clamp to the upper bound.
func (n *Normalizer) Normalize(s OrientationSample) PixelSample {
	x, y := s.X, s.Y
	if math.IsNaN(x) {
		x = n.xLimit
	}
	if math.IsNaN(y) {
		y = n.yLimit
	}
	x = clamp(x, -n.xLimit, n.xLimit)
	y = clamp(y, -n.yLimit, n.yLimit)

	x += n.xLimit
	y += n.yLimit

	x *= 1000 * n.xMulti
	y *= 1000 * n.yMulti

	x = n.height - x
	y = n.width - y

	return PixelSample{X: math.Trunc(y), Y: math.Trunc(x)}
}

// Size returns the container dimensions.
func (n *Normalizer) Size() (width, height float64) {
	return n.width, n.height
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
