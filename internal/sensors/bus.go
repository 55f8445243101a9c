// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ErrBus matches every register transfer failure.
var ErrBus = errors.New("bus error")

// Bus is the register-level access the sampling code needs from the device.
type Bus interface {
	ReadRegister(reg uint8) (uint8, error)
	WriteRegister(reg, value uint8) error
}

// BusError reports a failed register transfer.
type BusError struct {
	Op  string // "read" or "write"
	Reg uint8
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("%s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrBus) hold for any BusError.
func (e *BusError) Is(target error) bool { return target == ErrBus }

// I2CBus talks to one device on a periph.io I²C bus.
type I2CBus struct {
	dev    i2c.Dev
	closer i2c.BusCloser
}

// NewI2CBus binds the device at addr on an already opened bus. The caller
// keeps ownership of bus.
func NewI2CBus(bus i2c.Bus, addr uint16) *I2CBus {
	return &I2CBus{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// OpenI2C initializes the host drivers, opens the named bus ("" selects the
// first available one) and binds the device at addr.
func OpenI2C(name string, addr uint16) (*I2CBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c open bus %q: %w", name, err)
	}
	b := NewI2CBus(bus, addr)
	b.closer = bus
	return b, nil
}

// ReadRegister reads a single register.
func (b *I2CBus) ReadRegister(reg uint8) (uint8, error) {
	var r [1]byte
	if err := b.dev.Tx([]byte{reg}, r[:]); err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return r[0], nil
}

// WriteRegister writes a single register.
func (b *I2CBus) WriteRegister(reg, value uint8) error {
	if err := b.dev.Tx([]byte{reg, value}, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// Close releases the bus if OpenI2C opened it.
func (b *I2CBus) Close() error {
	if b.closer == nil {
		return nil
	}
	err := b.closer.Close()
	b.closer = nil
	return err
}

func (b *I2CBus) String() string {
	return b.dev.String()
}
