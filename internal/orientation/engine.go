// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/flight_gyro/internal/imu"
	"github.com/relabs-tech/flight_gyro/internal/logsink"
	"github.com/relabs-tech/flight_gyro/internal/sensors"
)

var (
	// ErrDeviceUnavailable is returned by Enable when the bus cannot be
	// acquired or the device does not accept the wake-up write.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrInvalidState is returned when an operation is not allowed in the
	// engine's current state.
	ErrInvalidState = errors.New("invalid engine state")
)

// State is the sampling lifecycle state.
type State int32

const (
	StateDisabled State = iota
	StateIdle           // enabled, not sampling
	StateRunning
	StateStopping // stop requested, loop not yet exited
	StateStopped  // loop exited, log sink closed
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// BusOpener acquires the device bus.
type BusOpener func() (sensors.Bus, error)

// Options configures an Engine.
type Options struct {
	OpenBus  BusOpener
	OpenSink logsink.Opener
	SinkID   string
	Now      func() time.Time // defaults to time.Now
}

// Stats are running counters, safe to read from any goroutine.
type Stats struct {
	Cycles     uint64 `json:"cycles"`
	BusErrors  uint64 `json:"bus_errors"`
	SinkErrors uint64 `json:"sink_errors"`
}

// CycleResult is the outcome of one poll cycle. Sample carries the gyro
// rates as well; they are not part of the published Orientation.
type CycleResult struct {
	Sample      imu.ScaledSample
	Orientation Orientation
	Err         error
}

// OK reports whether the cycle completed without error.
func (r CycleResult) OK() bool { return r.Err == nil }

// Engine owns the device bus, the log sink and the latest Orientation.
//
// One goroutine drives Run; Orientation, Stats, State and Stop may be called
// from any goroutine.
type Engine struct {
	opts Options

	mu    sync.Mutex
	state State
	bus   sensors.Bus
	sink  logsink.Sink

	stopReq   atomic.Bool
	snap      atomic.Pointer[Orientation]
	closeOnce sync.Once

	cycles     atomic.Uint64
	busErrors  atomic.Uint64
	sinkErrors atomic.Uint64
}

// NewEngine returns a disabled engine.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// Enable acquires the bus, wakes the device and opens the log sink. It is
// only valid once, from StateDisabled. On failure the engine stays disabled
// and nothing is left open.
func (e *Engine) Enable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateDisabled {
		return fmt.Errorf("enable while %s: %w", e.state, ErrInvalidState)
	}

	bus, err := e.opts.OpenBus()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if err := sensors.Wake(bus); err != nil {
		releaseBus(bus)
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	sink, err := e.opts.OpenSink(e.opts.SinkID)
	if err != nil {
		releaseBus(bus)
		return fmt.Errorf("open log sink %q: %w", e.opts.SinkID, err)
	}
	if err := sink.WriteHeader(logsink.Columns); err != nil {
		sink.Close()
		releaseBus(bus)
		return fmt.Errorf("write log header: %w", err)
	}

	e.bus = bus
	e.sink = sink
	e.state = StateIdle
	log.Printf("gyro: device enabled, logging to %s", e.opts.SinkID)
	return nil
}

// Start clears any pending stop request and marks the engine running. The
// caller drives the cycles, normally with Run in its own goroutine.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return fmt.Errorf("start while %s: %w", e.state, ErrInvalidState)
	}
	e.stopReq.Store(false)
	e.state = StateRunning
	return nil
}

// RunCycle performs one read-decode-scale-compute-publish-log iteration.
// A failed read leaves the published Orientation untouched.
func (e *Engine) RunCycle() CycleResult {
	e.mu.Lock()
	state, bus, sink := e.state, e.bus, e.sink
	e.mu.Unlock()

	if state != StateRunning && state != StateStopping {
		return CycleResult{Err: fmt.Errorf("cycle while %s: %w", state, ErrInvalidState)}
	}
	e.cycles.Add(1)

	raw, err := sensors.ReadRaw(bus)
	if err != nil {
		e.busErrors.Add(1)
		if !errors.Is(err, sensors.ErrBus) {
			err = fmt.Errorf("%w: %w", sensors.ErrBus, err)
		}
		return CycleResult{Err: fmt.Errorf("read sample: %w", err)}
	}

	scaled := imu.Scale(raw)
	o := &Orientation{
		Acceleration: scaled.Accel,
		Rotation:     ComputeRotation(scaled.Accel),
		Time:         e.opts.Now(),
	}
	e.snap.Store(o)

	res := CycleResult{Sample: scaled, Orientation: *o}
	if err := sink.WriteRecord(o.Record()); err != nil {
		e.sinkErrors.Add(1)
		res.Err = fmt.Errorf("write log record: %w", err)
	}
	return res
}

// Run drives cycles until Stop is called or ctx is done, then closes the
// log sink and releases the bus. Failed cycles are logged and skipped.
func (e *Engine) Run(ctx context.Context) error {
	if s := e.State(); s != StateRunning && s != StateStopping {
		return fmt.Errorf("run while %s: %w", s, ErrInvalidState)
	}

	log.Println("gyro: sampling started")
	for !e.stopReq.Load() && ctx.Err() == nil {
		if res := e.RunCycle(); !res.OK() {
			log.Printf("gyro: cycle skipped: %v", res.Err)
		}
	}
	e.shutdown()

	st := e.Stats()
	log.Printf("gyro: sampling stopped (cycles=%d, bus errors=%d, sink errors=%d)",
		st.Cycles, st.BusErrors, st.SinkErrors)
	return nil
}

// Stop requests the loop to exit before its next cycle. An in-flight cycle
// is never interrupted. Stopping an enabled engine that never ran closes the
// sink right away. Stop is idempotent.
func (e *Engine) Stop() {
	e.stopReq.Store(true)

	e.mu.Lock()
	state := e.state
	if state == StateRunning {
		e.state = StateStopping
	}
	e.mu.Unlock()

	if state == StateIdle {
		e.shutdown()
	}
}

// Orientation returns the latest snapshot. ok is false until the first
// successful cycle.
func (e *Engine) Orientation() (o Orientation, ok bool) {
	p := e.snap.Load()
	if p == nil {
		return Orientation{}, false
	}
	return *p, true
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns the cycle counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Cycles:     e.cycles.Load(),
		BusErrors:  e.busErrors.Load(),
		SinkErrors: e.sinkErrors.Load(),
	}
}

func (e *Engine) shutdown() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		sink, bus := e.sink, e.bus
		e.state = StateStopped
		e.mu.Unlock()

		if err := sink.Close(); err != nil {
			log.Printf("gyro: close log sink: %v", err)
		}
		releaseBus(bus)
	})
}

func releaseBus(bus sensors.Bus) {
	c, ok := bus.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("gyro: release bus: %v", err)
	}
}
