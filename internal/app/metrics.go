// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/flight_gyro/internal/orientation"
)

// engineCollectors exposes the engine counters, state and latest rotation.
func engineCollectors(e *orientation.Engine) []prometheus.Collector {
	cs := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "gyro_cycles_total",
			Help: "Poll cycles attempted.",
		}, func() float64 { return float64(e.Stats().Cycles) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "gyro_bus_errors_total",
			Help: "Poll cycles abandoned because of a bus read error.",
		}, func() float64 { return float64(e.Stats().BusErrors) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "gyro_sink_errors_total",
			Help: "Log records that could not be written.",
		}, func() float64 { return float64(e.Stats().SinkErrors) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gyro_state",
			Help: "Sampling state (0=disabled, 1=idle, 2=running, 3=stopping, 4=stopped).",
		}, func() float64 { return float64(e.State()) }),
	}

	axes := []struct {
		name string
		get  func(orientation.Orientation) float64
	}{
		{"x", func(o orientation.Orientation) float64 { return o.Rotation.X }},
		{"y", func(o orientation.Orientation) float64 { return o.Rotation.Y }},
		{"z", func(o orientation.Orientation) float64 { return o.Rotation.Z }},
	}
	for _, a := range axes {
		get := a.get
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "gyro_rotation_degrees",
			Help:        "Latest tilt angle per axis.",
			ConstLabels: prometheus.Labels{"axis": a.name},
		}, func() float64 {
			o, _ := e.Orientation()
			return get(o)
		}))
	}
	return cs
}

// newEngineRegistry returns a registry holding the engine collectors.
func newEngineRegistry(e *orientation.Engine) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, c := range engineCollectors(e) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// serveMetrics serves /metrics until ctx is done. A listener failure is
// logged and does not affect sampling.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Printf("producer: metrics listening on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("producer: metrics server error: %v", err)
	}
}
