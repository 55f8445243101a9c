// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Sensitivities for the power-on full scale ranges (±2g, ±250°/s).
const (
	AccelLSBPerG        = 16384.0
	GyroLSBPerDegPerSec = 131.0
)

// ReadSignedWord combines a high/low register pair into a two's-complement
// 16-bit value.
func ReadSignedWord(high, low byte) int16 {
	val := int(high)<<8 | int(low)
	if val >= 0x8000 {
		return int16(-(65536 - val))
	}
	return int16(val)
}

// ScaleAccel converts raw accelerometer counts to g.
func ScaleAccel(raw int16) float64 {
	return float64(raw) / AccelLSBPerG
}

// ScaleGyro converts raw gyroscope counts to degrees per second.
func ScaleGyro(raw int16) float64 {
	return float64(raw) / GyroLSBPerDegPerSec
}

// Scale converts a whole raw sample.
func Scale(r RawSample) ScaledSample {
	return ScaledSample{
		Accel: Vector{X: ScaleAccel(r.Ax), Y: ScaleAccel(r.Ay), Z: ScaleAccel(r.Az)},
		Gyro:  Vector{X: ScaleGyro(r.Gx), Y: ScaleGyro(r.Gy), Z: ScaleGyro(r.Gz)},
	}
}
