// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// RawSample represents one poll of the six accel/gyro output registers,
// already decoded to signed counts.
type RawSample struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Vector is a triplet along the sensor axes.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ScaledSample is a RawSample converted to physical units.
type ScaledSample struct {
	Accel Vector `json:"accel"` // g
	Gyro  Vector `json:"gyro"`  // °/s
}
