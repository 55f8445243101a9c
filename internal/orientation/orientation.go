// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/flight_gyro/internal/imu"
	"github.com/relabs-tech/flight_gyro/internal/logsink"
)

// Orientation is the snapshot published after every successful poll cycle.
type Orientation struct {
	Acceleration imu.Vector `json:"acceleration"` // g
	Rotation     imu.Vector `json:"rotation"`     // degrees
	Time         time.Time  `json:"time"`
}

// Dist is the length of the (a, b) vector.
func Dist(a, b float64) float64 {
	return math.Sqrt(a*a + b*b)
}

func degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// XRotation is the tilt of the X axis against gravity.
func XRotation(x, y, z float64) float64 {
	return degrees(math.Atan2(y, Dist(x, z)))
}

// YRotation is the tilt of the Y axis against gravity. The sign is flipped to
// match the board mounting.
func YRotation(x, y, z float64) float64 {
	return -degrees(math.Atan2(x, Dist(y, z)))
}

// ZRotation is the tilt of the Z axis against gravity, also sign flipped.
func ZRotation(x, y, z float64) float64 {
	return -degrees(math.Atan2(z, Dist(y, x)))
}

// ComputeRotation derives the three tilt angles from an acceleration
// triplet in g. Only ratios matter, so any consistent unit works.
func ComputeRotation(accel imu.Vector) imu.Vector {
	return imu.Vector{
		X: XRotation(accel.X, accel.Y, accel.Z),
		Y: YRotation(accel.X, accel.Y, accel.Z),
		Z: ZRotation(accel.X, accel.Y, accel.Z),
	}
}

// Record renders the log row for o, in logsink.Columns order.
func (o Orientation) Record() []string {
	return []string{
		logsink.FormatFloat(o.Acceleration.X),
		logsink.FormatFloat(o.Acceleration.Y),
		logsink.FormatFloat(o.Acceleration.Z),
		logsink.FormatFloat(o.Rotation.X),
		logsink.FormatFloat(o.Rotation.Y),
		logsink.FormatFloat(o.Rotation.Z),
	}
}
