package sensor

import "math"

// Euler returns roll, pitch and yaw in radians (ZYX convention).
// Pitch is clamped at ±90° when the quaternion is not normalised.
func (o Orientation) Euler() (roll, pitch, yaw float64) {
	sinr := 2 * (o.W*o.X + o.Y*o.Z)
	cosr := 1 - 2*(o.X*o.X+o.Y*o.Y)
	roll = math.Atan2(sinr, cosr)

	sinp := 2 * (o.W*o.Y - o.Z*o.X)
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	siny := 2 * (o.W*o.Z + o.X*o.Y)
	cosy := 1 - 2*(o.Y*o.Y+o.Z*o.Z)
	yaw = math.Atan2(siny, cosy)
	return roll, pitch, yaw
}

// Degrees returns roll, pitch and yaw in degrees.
func (o Orientation) Degrees() (roll, pitch, yaw float64) {
	r, p, y := o.Euler()
	return r * 180 / math.Pi, p * 180 / math.Pi, y * 180 / math.Pi
}
