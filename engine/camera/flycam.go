package camera

import "math"

const (
	defaultSpeed       = 0.15
	defaultSensitivity = 0.002
	pitchLimit         = math.Pi/2 - 0.01
)

// Flycam is a free-fly camera: yaw/pitch orientation plus a position,
// producing the view matrix pushed to the compute shader each frame.
type Flycam struct {
	position    [3]float32
	yaw         float64
	pitch       float64
	speed       float32
	sensitivity float64
}

func New() *Flycam {
	return &Flycam{
		position:    [3]float32{0, 0, -2},
		speed:       defaultSpeed,
		sensitivity: defaultSensitivity,
	}
}

// Movement moves the camera in view-relative space: +x strafes right,
// +z moves forward along the view direction.
func (c *Flycam) Movement(dx, dy, dz float32) {
	sinYaw := float32(math.Sin(c.yaw))
	cosYaw := float32(math.Cos(c.yaw))

	c.position[0] += c.speed * (dx*cosYaw + dz*sinYaw)
	c.position[1] += c.speed * dy
	c.position[2] += c.speed * (dz*cosYaw - dx*sinYaw)
}

// MouseDelta turns the camera by a cursor delta in pixels.
func (c *Flycam) MouseDelta(dx, dy float64) {
	c.yaw += dx * c.sensitivity
	c.pitch += dy * c.sensitivity

	if c.pitch > pitchLimit {
		c.pitch = pitchLimit
	}
	if c.pitch < -pitchLimit {
		c.pitch = -pitchLimit
	}
}

func (c *Flycam) Position() [3]float32 {
	return c.position
}

// ViewMatrix returns the column-major world-to-view matrix
// (rotation by -yaw/-pitch followed by translation by -position).
func (c *Flycam) ViewMatrix() [16]float32 {
	sy, cy := math.Sincos(c.yaw)
	sp, cp := math.Sincos(c.pitch)

	// Basis vectors of the camera in world space.
	right := [3]float32{float32(cy), 0, float32(-sy)}
	up := [3]float32{float32(sy * sp), float32(cp), float32(cy * sp)}
	forward := [3]float32{float32(sy * cp), float32(-sp), float32(cy * cp)}

	dot := func(a [3]float32) float32 {
		return a[0]*c.position[0] + a[1]*c.position[1] + a[2]*c.position[2]
	}

	return [16]float32{
		right[0], up[0], forward[0], 0,
		right[1], up[1], forward[1], 0,
		right[2], up[2], forward[2], 0,
		-dot(right), -dot(up), -dot(forward), 1,
	}
}
