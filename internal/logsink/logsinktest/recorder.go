// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logsinktest provides an in-memory log sink for tests.
package logsinktest

import (
	"sync"

	"github.com/relabs-tech/flight_gyro/internal/logsink"
)

// Recorder implements logsink.Sink in memory.
type Recorder struct {
	mu         sync.Mutex
	ID         string
	header     []string
	records    [][]string
	closes     int
	failWrites error
}

// Opener returns a logsink.Opener that hands out r.
func (r *Recorder) Opener() logsink.Opener {
	return func(identifier string) (logsink.Sink, error) {
		r.mu.Lock()
		r.ID = identifier
		r.mu.Unlock()
		return r, nil
	}
}

func (r *Recorder) WriteHeader(columns []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closes > 0 {
		return logsink.ErrClosed
	}
	r.header = append([]string(nil), columns...)
	return nil
}

func (r *Recorder) WriteRecord(fields []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closes > 0 {
		return logsink.ErrClosed
	}
	if r.failWrites != nil {
		return r.failWrites
	}
	r.records = append(r.records, append([]string(nil), fields...))
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closes++
	r.mu.Unlock()
	return nil
}

// SetFailWrites makes WriteRecord return err (nil restores normal writes).
func (r *Recorder) SetFailWrites(err error) {
	r.mu.Lock()
	r.failWrites = err
	r.mu.Unlock()
}

// Header returns the header row written so far.
func (r *Recorder) Header() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.header...)
}

// Records returns a copy of the rows written so far.
func (r *Recorder) Records() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.records))
	copy(out, r.records)
	return out
}

// Closes reports how many times Close was called.
func (r *Recorder) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}
