// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/flight_gyro/internal/logsink"
	"github.com/relabs-tech/flight_gyro/internal/sensors"
)

// Config holds all application configuration values.
type Config struct {
	// Device
	I2CBus     string // periph bus name, "1" on Raspberry Pi rev 2
	DeviceAddr uint16
	UseMock    bool // sample the simulated device instead of the bus

	// Log file
	LogDir    string
	LogPrefix string

	// MQTT
	MQTTBroker           string // empty disables publishing
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string

	// Topics
	TopicOrientation string

	// Timing
	PublishInterval int // milliseconds between snapshot publications

	// HTTP
	MetricsPort                int // 0 disables /metrics
	WebServerPort              int
	RegisterDebugPort          int
	RegisterDebugAllowedRanges string // e.g. "0x19-0x1C,0x6B"; empty means read-only
}

// Package-level singleton: InitGlobal sets it once, Get reads it under a
// read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		I2CBus:               sensors.DefaultBus,
		DeviceAddr:           sensors.DefaultAddr,
		LogDir:               ".",
		LogPrefix:            logsink.DefaultPrefix,
		MQTTClientIDProducer: "gyro-producer",
		MQTTClientIDConsole:  "gyro-console-subscriber",
		MQTTClientIDWeb:      "gyro-web-subscriber",
		TopicOrientation:     "gyro/orientation",
		PublishInterval:      100,
		MetricsPort:          9100,
		WebServerPort:        8080,
		RegisterDebugPort:    8081,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Device
	case "I2C_BUS":
		c.I2CBus = value
	case "DEVICE_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DEVICE_ADDR %q: %w", value, err)
		}
		if addr > 0x7F {
			return fmt.Errorf("DEVICE_ADDR must be a 7-bit address, got 0x%X", addr)
		}
		c.DeviceAddr = uint16(addr)
	case "USE_MOCK":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_MOCK %q: %w", value, err)
		}
		c.UseMock = v

	// Log file
	case "LOG_DIR":
		c.LogDir = value
	case "LOG_PREFIX":
		c.LogPrefix = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value

	// Timing
	case "PUBLISH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PUBLISH_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("PUBLISH_INTERVAL must be positive, got %d", interval)
		}
		c.PublishInterval = interval

	// HTTP
	case "METRICS_PORT":
		port, err := parsePort("METRICS_PORT", value)
		if err != nil {
			return err
		}
		c.MetricsPort = port
	case "WEB_SERVER_PORT":
		port, err := parsePort("WEB_SERVER_PORT", value)
		if err != nil {
			return err
		}
		c.WebServerPort = port
	case "REGISTER_DEBUG_PORT":
		port, err := parsePort("REGISTER_DEBUG_PORT", value)
		if err != nil {
			return err
		}
		c.RegisterDebugPort = port
	case "REGISTER_DEBUG_ALLOWED_RANGES":
		if _, err := ParseRegisterRanges(value); err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_ALLOWED_RANGES %q: %w", value, err)
		}
		c.RegisterDebugAllowedRanges = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parsePort(key, value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be 0-65535, got %d", key, port)
	}
	return port, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.I2CBus == "" && !c.UseMock {
		return fmt.Errorf("I2C_BUS is required")
	}
	if c.DeviceAddr == 0 {
		return fmt.Errorf("DEVICE_ADDR is required")
	}
	if c.MQTTBroker != "" && c.TopicOrientation == "" {
		return fmt.Errorf("TOPIC_ORIENTATION is required when MQTT_BROKER is set")
	}
	return nil
}

// RegisterRange is an inclusive register address range.
type RegisterRange struct {
	From, To uint8
}

// ParseRegisterRanges parses "0x19-0x1C,0x6B" style lists.
func ParseRegisterRanges(s string) ([]RegisterRange, error) {
	var out []RegisterRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.ParseUint(strings.TrimSpace(lo), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", lo, err)
		}
		to := from
		if isRange {
			to, err = strconv.ParseUint(strings.TrimSpace(hi), 0, 8)
			if err != nil {
				return nil, fmt.Errorf("register %q: %w", hi, err)
			}
		}
		if to < from {
			return nil, fmt.Errorf("range %q is reversed", part)
		}
		out = append(out, RegisterRange{From: uint8(from), To: uint8(to)})
	}
	return out, nil
}

// RegisterWritable reports whether addr falls inside the allowed ranges.
func (c *Config) RegisterWritable(addr uint8) bool {
	ranges, err := ParseRegisterRanges(c.RegisterDebugAllowedRanges)
	if err != nil {
		return false
	}
	for _, r := range ranges {
		if addr >= r.From && addr <= r.To {
			return true
		}
	}
	return false
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
