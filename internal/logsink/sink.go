// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logsink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// DefaultPrefix is prepended to the timestamp of every log file.
const DefaultPrefix = "aether-log-gyro-"

// Columns is the header row, in record order.
var Columns = []string{"accel_x", "accel_y", "accel_z", "rotation_x", "rotation_y", "rotation_z"}

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("log sink closed")

// Sink is an append-only record log.
type Sink interface {
	WriteHeader(columns []string) error
	WriteRecord(fields []string) error
	Close() error
}

// Opener opens the sink named by identifier.
type Opener func(identifier string) (Sink, error)

// Identifier names a log file in dir from prefix and the start time.
func Identifier(dir, prefix string, t time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(dir, prefix+t.Format("20060102-150405"))
}

// FormatFloat renders a field with the shortest representation that reads
// back to the same value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// tsvSink writes tab-separated rows and flushes after each one so a crash
// loses at most the row being written.
type tsvSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	closed bool
}

// NewWriter returns a tab-separated sink on w. Close closes w when it is an
// io.Closer.
func NewWriter(w io.Writer) Sink {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	s := &tsvSink{w: cw}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenFile creates (or truncates) the file at identifier.
func OpenFile(identifier string) (Sink, error) {
	f, err := os.Create(identifier)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return NewWriter(f), nil
}

func (s *tsvSink) WriteHeader(columns []string) error {
	return s.write(columns)
}

func (s *tsvSink) WriteRecord(fields []string) error {
	return s.write(fields)
}

func (s *tsvSink) write(row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *tsvSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
