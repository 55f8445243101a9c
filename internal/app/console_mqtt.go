// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flight_gyro/internal/config"
	"github.com/relabs-tech/flight_gyro/internal/orientation"
)

// formatOrientation renders one console line.
func formatOrientation(tag string, o orientation.Orientation) string {
	return fmt.Sprintf(
		"[%s] ax=%6.3f ay=%6.3f az=%6.3f  rx=%7.2f ry=%7.2f rz=%7.2f",
		tag,
		o.Acceleration.X, o.Acceleration.Y, o.Acceleration.Z,
		o.Rotation.X, o.Rotation.Y, o.Rotation.Z,
	)
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	if cfg.MQTTBroker == "" {
		return errMissingBroker
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicOrientation, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var o orientation.Orientation
		if err := json.Unmarshal(msg.Payload(), &o); err != nil {
			log.Printf("console: orientation unmarshal error: %v", err)
			return
		}
		fmt.Println(formatOrientation("ORIENT", o))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicOrientation)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
