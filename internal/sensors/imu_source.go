// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/flight_gyro/internal/imu"
)

// Wake takes the device out of sleep mode. The chip powers up asleep and
// keeps its output registers frozen until PWR_MGMT_1 is cleared.
func Wake(bus Bus) error {
	if err := bus.WriteRegister(RegPowerMgmt1, 0); err != nil {
		return fmt.Errorf("wake: %w", err)
	}
	return nil
}

// WhoAmI reads the identity register.
func WhoAmI(bus Bus) (uint8, error) {
	return bus.ReadRegister(RegWhoAmI)
}

// ReadWord2C reads the high byte at reg and the low byte at reg+1 and decodes
// them as a two's-complement word.
func ReadWord2C(bus Bus, reg uint8) (int16, error) {
	high, err := bus.ReadRegister(reg)
	if err != nil {
		return 0, err
	}
	low, err := bus.ReadRegister(reg + 1)
	if err != nil {
		return 0, err
	}
	return imu.ReadSignedWord(high, low), nil
}

// ReadRaw reads accelerometer X/Y/Z followed by gyroscope X/Y/Z.
func ReadRaw(bus Bus) (imu.RawSample, error) {
	ax, err := ReadWord2C(bus, RegAccelXOutH)
	if err != nil {
		return imu.RawSample{}, fmt.Errorf("accel X: %w", err)
	}
	ay, err := ReadWord2C(bus, RegAccelYOutH)
	if err != nil {
		return imu.RawSample{}, fmt.Errorf("accel Y: %w", err)
	}
	az, err := ReadWord2C(bus, RegAccelZOutH)
	if err != nil {
		return imu.RawSample{}, fmt.Errorf("accel Z: %w", err)
	}

	gx, err := ReadWord2C(bus, RegGyroXOutH)
	if err != nil {
		return imu.RawSample{}, fmt.Errorf("gyro X: %w", err)
	}
	gy, err := ReadWord2C(bus, RegGyroYOutH)
	if err != nil {
		return imu.RawSample{}, fmt.Errorf("gyro Y: %w", err)
	}
	gz, err := ReadWord2C(bus, RegGyroZOutH)
	if err != nil {
		return imu.RawSample{}, fmt.Errorf("gyro Z: %w", err)
	}

	return imu.RawSample{
		Ax: ax,
		Ay: ay,
		Az: az,
		Gx: gx,
		Gy: gy,
		Gz: gz,
	}, nil
}

// ReadAllRegisters reads every register listed in RegisterMap.
func ReadAllRegisters(bus Bus) (map[uint8]uint8, error) {
	regs := RegisterMap()
	out := make(map[uint8]uint8, len(regs))
	for _, r := range regs {
		v, err := bus.ReadRegister(r.Address)
		if err != nil {
			return nil, err
		}
		out[r.Address] = v
	}
	return out, nil
}
