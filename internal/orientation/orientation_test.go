package orientation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/flight_gyro/internal/imu"
)

const tol = 1e-6

func TestComputeRotationKnownOrientations(t *testing.T) {
	t.Parallel()

	t.Run("flat, z axis up", func(t *testing.T) {
		t.Parallel()
		r := ComputeRotation(imu.Vector{X: 0, Y: 0, Z: 1})
		assert.InDelta(t, 0, r.X, tol)
		assert.InDelta(t, 0, r.Y, tol)
		// atan2(1, 0) = 90°, negated.
		assert.InDelta(t, -90, r.Z, tol)
	})

	t.Run("x axis down", func(t *testing.T) {
		t.Parallel()
		r := ComputeRotation(imu.Vector{X: 1, Y: 0, Z: 0})
		assert.InDelta(t, 0, r.X, tol)
		assert.InDelta(t, -90, r.Y, tol)
		assert.InDelta(t, 0, r.Z, tol)
	})

	t.Run("y axis down", func(t *testing.T) {
		t.Parallel()
		r := ComputeRotation(imu.Vector{X: 0, Y: 1, Z: 0})
		assert.InDelta(t, 90, r.X, tol)
		assert.InDelta(t, 0, r.Y, tol)
		assert.InDelta(t, 0, r.Z, tol)
	})

	t.Run("45 degree roll", func(t *testing.T) {
		t.Parallel()
		s := math.Sqrt2 / 2
		r := ComputeRotation(imu.Vector{X: 0, Y: s, Z: s})
		assert.InDelta(t, 45, r.X, tol)
		assert.InDelta(t, 0, r.Y, tol)
		assert.InDelta(t, -45, r.Z, tol)
	})

	t.Run("quadrant resolution with negative axes", func(t *testing.T) {
		t.Parallel()
		r := ComputeRotation(imu.Vector{X: -1, Y: -1, Z: 0})
		assert.InDelta(t, -45, r.X, tol)
		assert.InDelta(t, 45, r.Y, tol)
	})
}

func TestComputeRotationIsDeterministic(t *testing.T) {
	t.Parallel()

	inputs := []imu.Vector{
		{X: 0.1, Y: -0.2, Z: 0.97},
		{X: -0.5, Y: 0.5, Z: -0.7},
		{X: 0, Y: 0, Z: 0},
	}
	for _, in := range inputs {
		first := ComputeRotation(in)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, ComputeRotation(in))
		}
	}
}

func TestDist(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5.0, Dist(3, 4))
	assert.Equal(t, 5.0, Dist(-3, -4))
	assert.Equal(t, 0.0, Dist(0, 0))
}

func TestOrientationRecord(t *testing.T) {
	t.Parallel()
	o := Orientation{
		Acceleration: imu.Vector{X: 0.5, Y: -0.25, Z: 1},
		Rotation:     imu.Vector{X: 10, Y: -20.5, Z: 30},
		Time:         time.Now(),
	}
	assert.Equal(t, []string{"0.5", "-0.25", "1", "10", "-20.5", "30"}, o.Record())
}
