package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewMatrixAtOriginIsIdentityRotation(t *testing.T) {
	c := New()
	c.position = [3]float32{0, 0, 0}

	m := c.ViewMatrix()
	identity := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	for i := range identity {
		assert.InDelta(t, identity[i], m[i], 1e-6, "element %d", i)
	}
}

func TestViewMatrixTranslation(t *testing.T) {
	c := New()
	c.position = [3]float32{1, 2, 3}

	m := c.ViewMatrix()
	// With no rotation the last column is the negated position.
	assert.InDelta(t, -1.0, float64(m[12]), 1e-6)
	assert.InDelta(t, -2.0, float64(m[13]), 1e-6)
	assert.InDelta(t, -3.0, float64(m[14]), 1e-6)
}

func TestMouseDeltaClampsPitch(t *testing.T) {
	c := New()
	c.MouseDelta(0, 1e9)
	assert.LessOrEqual(t, c.pitch, math.Pi/2)

	c.MouseDelta(0, -1e9)
	assert.GreaterOrEqual(t, c.pitch, -math.Pi/2)
}

func TestMovementForwardFollowsYaw(t *testing.T) {
	c := New()
	c.position = [3]float32{0, 0, 0}

	// Facing +z, moving forward increases z only.
	c.Movement(0, 0, 1)
	assert.InDelta(t, 0.0, float64(c.position[0]), 1e-6)
	assert.Greater(t, float64(c.position[2]), 0.0)

	// Turn 90 degrees: forward now moves along +x.
	c.position = [3]float32{0, 0, 0}
	c.yaw = math.Pi / 2
	c.Movement(0, 0, 1)
	assert.Greater(t, float64(c.position[0]), 0.0)
	assert.InDelta(t, 0.0, float64(c.position[2]), 1e-6)
}
