// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"math"
	"sync"
	"time"
)

var errSimFault = errors.New("simulated bus fault")

// SimBus is an in-process MPU-6050 stand-in. It powers up asleep like the
// real chip and, once woken, regenerates its output registers from a slowly
// rocking gravity vector every time ACCEL_XOUT_H is read.
type SimBus struct {
	mu        sync.Mutex
	regs      [256]byte
	start     time.Time
	now       func() time.Time
	failReads int
}

// NewSimBus creates a sleeping simulated device.
func NewSimBus() *SimBus {
	s := &SimBus{now: time.Now}
	s.start = s.now()
	s.regs[RegPowerMgmt1] = PowerMgmt1Sleep
	s.regs[RegWhoAmI] = WhoAmIValue
	return s
}

// FailNextReads makes the next n register reads fail.
func (s *SimBus) FailNextReads(n int) {
	s.mu.Lock()
	s.failReads = n
	s.mu.Unlock()
}

// ReadRegister implements Bus.
func (s *SimBus) ReadRegister(reg uint8) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failReads > 0 {
		s.failReads--
		return 0, &BusError{Op: "read", Reg: reg, Err: errSimFault}
	}
	if reg == RegAccelXOutH && s.regs[RegPowerMgmt1]&PowerMgmt1Sleep == 0 {
		s.refresh(s.now().Sub(s.start).Seconds())
	}
	return s.regs[reg], nil
}

// WriteRegister implements Bus.
func (s *SimBus) WriteRegister(reg, value uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg == RegWhoAmI {
		return nil
	}
	s.regs[reg] = value
	return nil
}

// refresh fills the accel and gyro output registers for time t (seconds).
func (s *SimBus) refresh(t float64) {
	rollDeg := 20 * math.Sin(t)
	pitchDeg := 15 * math.Cos(t*0.7)
	roll := rollDeg * math.Pi / 180
	pitch := pitchDeg * math.Pi / 180

	ax := -math.Sin(pitch)
	ay := math.Sin(roll) * math.Cos(pitch)
	az := math.Cos(roll) * math.Cos(pitch)

	rollRate := 20 * math.Cos(t)
	pitchRate := -15 * 0.7 * math.Sin(t*0.7)

	s.putWord(RegAccelXOutH, ax*16384)
	s.putWord(RegAccelYOutH, ay*16384)
	s.putWord(RegAccelZOutH, az*16384)
	s.putWord(RegGyroXOutH, rollRate*131)
	s.putWord(RegGyroYOutH, pitchRate*131)
	s.putWord(RegGyroZOutH, 0)
}

func (s *SimBus) putWord(reg uint8, counts float64) {
	v := math.Round(counts)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	}
	if v < math.MinInt16 {
		v = math.MinInt16
	}
	w := uint16(int16(v))
	s.regs[reg] = byte(w >> 8)
	s.regs[reg+1] = byte(w)
}
