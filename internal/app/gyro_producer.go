// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/flight_gyro/internal/config"
	"github.com/relabs-tech/flight_gyro/internal/logsink"
	"github.com/relabs-tech/flight_gyro/internal/orientation"
	"github.com/relabs-tech/flight_gyro/internal/sensors"
)

// publisher is the part of mqtt.Client the snapshot publisher uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// snapshotSource is anything that holds a latest Orientation.
type snapshotSource interface {
	Orientation() (orientation.Orientation, bool)
}

// busOpener returns the device bus the configuration asks for.
func busOpener(cfg *config.Config) orientation.BusOpener {
	if cfg.UseMock {
		return func() (sensors.Bus, error) {
			log.Println("producer: using simulated MPU-6050")
			return sensors.NewSimBus(), nil
		}
	}
	return func() (sensors.Bus, error) {
		bus, err := sensors.OpenI2C(cfg.I2CBus, cfg.DeviceAddr)
		if err != nil {
			return nil, err
		}
		id, err := sensors.WhoAmI(bus)
		if err != nil {
			bus.Close()
			return nil, fmt.Errorf("device at 0x%02X on bus %s not answering: %w", cfg.DeviceAddr, cfg.I2CBus, err)
		}
		if id != sensors.WhoAmIValue {
			log.Printf("producer: WARNING: WHO_AM_I = 0x%02X, expected 0x%02X", id, sensors.WhoAmIValue)
		}
		log.Printf("producer: MPU-6050 found at 0x%02X on %s", cfg.DeviceAddr, bus)
		return bus, nil
	}
}

// RunGyroProducer samples the device until ctx is done. The latest
// orientation is published to MQTT (when a broker is configured) and the
// loop counters are exposed on /metrics (when a port is configured).
func RunGyroProducer(ctx context.Context) error {
	log.Println("starting flight-gyro producer")

	cfg := config.Get()

	// --- connect to MQTT (optional) ---
	var client mqtt.Client
	if cfg.MQTTBroker != "" {
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTBroker).
			SetClientID(cfg.MQTTClientIDProducer)

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("MQTT connect: %w", token.Error())
		}
		defer client.Disconnect(250)
		log.Printf("producer: connected to MQTT broker at %s", cfg.MQTTBroker)
	} else {
		log.Println("producer: MQTT_BROKER not set, publishing disabled")
	}

	// --- enable the device ---
	engine := orientation.NewEngine(orientation.Options{
		OpenBus:  busOpener(cfg),
		OpenSink: logsink.OpenFile,
		SinkID:   logsink.Identifier(cfg.LogDir, cfg.LogPrefix, time.Now()),
	})
	if err := engine.Enable(); err != nil {
		return fmt.Errorf("enable gyro: %w", err)
	}
	if err := engine.Start(); err != nil {
		engine.Stop()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})

	if client != nil {
		interval := time.Duration(cfg.PublishInterval) * time.Millisecond
		g.Go(func() error {
			publishOrientation(gctx, client, engine, cfg.TopicOrientation, interval)
			return nil
		})
	}

	if cfg.MetricsPort != 0 {
		reg, err := newEngineRegistry(engine)
		if err != nil {
			engine.Stop()
			return fmt.Errorf("register metrics: %w", err)
		}
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		g.Go(func() error {
			serveMetrics(gctx, addr, reg)
			return nil
		})
	}

	return g.Wait()
}

// publishOrientation publishes every new snapshot, at most once per interval,
// as a retained JSON message.
func publishOrientation(ctx context.Context, pub publisher, src snapshotSource, topic string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastTime time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		o, ok := src.Orientation()
		if !ok || o.Time.Equal(lastTime) {
			continue
		}

		payload, err := json.Marshal(o)
		if err != nil {
			log.Printf("producer: json marshal error (orientation): %v", err)
			continue
		}
		if token := pub.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("producer: MQTT publish error (%s): %v", topic, token.Error())
			continue
		}
		lastTime = o.Time
	}
}
