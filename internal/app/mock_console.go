// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/flight_gyro/internal/logsink"
	"github.com/relabs-tech/flight_gyro/internal/orientation"
	"github.com/relabs-tech/flight_gyro/internal/sensors"
)

// RunMockConsole runs the engine against the simulated device and prints
// the latest orientation every 100ms until ctx is done.
func RunMockConsole(ctx context.Context, out io.Writer) error {
	engine := orientation.NewEngine(orientation.Options{
		OpenBus: func() (sensors.Bus, error) { return sensors.NewSimBus(), nil },
		OpenSink: func(string) (logsink.Sink, error) {
			return logsink.NewWriter(io.Discard), nil
		},
	})
	if err := engine.Enable(); err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		engine.Stop()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
			if o, ok := engine.Orientation(); ok {
				fmt.Fprintln(out, formatOrientation("MOCK", o))
			}
		}
	})
	return g.Wait()
}
