// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/flight_gyro/internal/config"
	"github.com/relabs-tech/flight_gyro/internal/imu"
	"github.com/relabs-tech/flight_gyro/internal/orientation"
	"github.com/relabs-tech/flight_gyro/internal/sensors"
)

// Response types
type RegisterResponse struct {
	Type        string            `json:"type"` // "register_data", "register_map", "status", "error"
	Address     string            `json:"addr,omitempty"`
	Value       string            `json:"value,omitempty"`
	Registers   map[string]string `json:"registers,omitempty"` // for bulk read
	Timestamp   string            `json:"timestamp,omitempty"`
	Message     string            `json:"message,omitempty"`
	Status      string            `json:"status,omitempty"`
	RegisterMap []RegisterInfo    `json:"register_map,omitempty"`
}

type RegisterInfo struct {
	Address     string             `json:"address"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Access      string             `json:"access"` // "R", "W", "RW"
	Default     string             `json:"default,omitempty"`
	BitFields   []sensors.BitField `json:"bit_fields,omitempty"`
}

// RegisterConfigFile represents the JSON structure for exported register configuration
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

// IMUData is one live reading served by /api/imu.
type IMUData struct {
	Raw      imu.RawSample    `json:"raw"`
	Scaled   imu.ScaledSample `json:"scaled"`
	Rotation imu.Vector       `json:"rotation"`
}

// RegisterDebug exposes raw register access to a device over HTTP.
// Websocket sessions and REST calls share the bus, so access is serialized.
type RegisterDebug struct {
	mu  sync.Mutex
	bus sensors.Bus
	cfg *config.Config
}

func NewRegisterDebug(bus sensors.Bus, cfg *config.Config) *RegisterDebug {
	return &RegisterDebug{bus: bus, cfg: cfg}
}

// Routes returns the register debug endpoints.
func (d *RegisterDebug) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", d.HandleWS)
	mux.HandleFunc("/api/imu", d.HandleIMUData)
	return mux
}

// registerDebugSession holds WebSocket connection state for register debugging
type registerDebugSession struct {
	conn *websocket.Conn
	d    *RegisterDebug
}

// HandleWS handles the WebSocket connection for register debugging
func (d *RegisterDebug) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s := &registerDebugSession{conn: conn, d: d}

	// Send register map on connection
	if err := s.sendRegisterMap(); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	// Message loop
	for {
		var rawMsg map[string]interface{}
		if err := conn.ReadJSON(&rawMsg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			break
		}

		action, ok := rawMsg["action"].(string)
		if !ok {
			s.sendError("missing or invalid action field")
			continue
		}

		// Route based on action
		switch action {
		case "get_map":
			s.sendRegisterMap()
		case "read":
			s.handleRead(rawMsg)
		case "read_all":
			s.handleReadAll()
		case "write":
			s.handleWrite(rawMsg)
		case "wake":
			s.handleWake()
		case "export_config":
			s.handleExportConfig()
		default:
			s.sendError(fmt.Sprintf("unknown action: %s", action))
		}
	}
}

// parseHexByte accepts "0x1B", "1b" or "0X1B".
func parseHexByte(s string) (uint8, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func hexByte(v uint8) string {
	return fmt.Sprintf("0x%02X", v)
}

func (s *registerDebugSession) handleRead(rawMsg map[string]interface{}) {
	addr, _ := rawMsg["addr"].(string)
	if addr == "" {
		s.sendError("missing addr field")
		return
	}

	reg, err := parseHexByte(addr)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid address format: %s", addr))
		return
	}

	s.d.mu.Lock()
	value, err := s.d.bus.ReadRegister(reg)
	s.d.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("read error: %v", err))
		return
	}

	s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Address:   hexByte(reg),
		Value:     hexByte(value),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *registerDebugSession) readAll() (map[string]string, error) {
	s.d.mu.Lock()
	registers, err := sensors.ReadAllRegisters(s.d.bus)
	s.d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Convert to hex string map
	regMap := make(map[string]string, len(registers))
	for addr, value := range registers {
		regMap[hexByte(addr)] = hexByte(value)
	}
	return regMap, nil
}

func (s *registerDebugSession) handleReadAll() {
	regMap, err := s.readAll()
	if err != nil {
		s.sendError(fmt.Sprintf("read all error: %v", err))
		return
	}

	s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Registers: regMap,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *registerDebugSession) handleWrite(rawMsg map[string]interface{}) {
	addr, _ := rawMsg["addr"].(string)
	valueStr, _ := rawMsg["value"].(string)
	if addr == "" || valueStr == "" {
		s.sendError("missing addr or value field")
		return
	}

	reg, err := parseHexByte(addr)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid address format: %s", addr))
		return
	}
	value, err := parseHexByte(valueStr)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid value format: %s", valueStr))
		return
	}

	if !s.d.cfg.RegisterWritable(reg) {
		s.sendError(fmt.Sprintf("register %s not in allowed write ranges", hexByte(reg)))
		return
	}

	s.d.mu.Lock()
	err = s.d.bus.WriteRegister(reg, value)
	s.d.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("write error: %v", err))
		return
	}
	log.Printf("register_debug: wrote %s = %s", hexByte(reg), hexByte(value))

	s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Address:   hexByte(reg),
		Value:     hexByte(value),
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "write successful",
	})
}

func (s *registerDebugSession) handleWake() {
	s.d.mu.Lock()
	err := sensors.Wake(s.d.bus)
	s.d.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("wake error: %v", err))
		return
	}

	s.conn.WriteJSON(RegisterResponse{
		Type:    "status",
		Status:  "awake",
		Message: "device woken (PWR_MGMT_1 = 0x00)",
	})
}

func (s *registerDebugSession) handleExportConfig() {
	regMap, err := s.readAll()
	if err != nil {
		s.sendError(fmt.Sprintf("export error: %v", err))
		return
	}

	now := time.Now()
	configJSON, _ := json.Marshal(RegisterConfigFile{
		Version:   1,
		Device:    "mpu6050",
		Timestamp: now.Format(time.RFC3339),
		Registers: regMap,
	})
	s.conn.WriteJSON(map[string]interface{}{
		"type":     "export_config",
		"message":  "config exported",
		"config":   string(configJSON),
		"filename": fmt.Sprintf("mpu6050_%s_registers.json", now.Format("20060102_150405")),
	})
}

func (s *registerDebugSession) sendRegisterMap() error {
	regMap := sensors.RegisterMap()
	sort.Slice(regMap, func(i, j int) bool { return regMap[i].Address < regMap[j].Address })

	mappedRegs := make([]RegisterInfo, len(regMap))
	for i, r := range regMap {
		mappedRegs[i] = RegisterInfo{
			Address:     hexByte(r.Address),
			Name:        r.Name,
			Description: r.Description,
			Access:      r.Access,
			Default:     hexByte(r.Default),
			BitFields:   r.BitFields,
		}
	}

	return s.conn.WriteJSON(RegisterResponse{
		Type:        "register_map",
		RegisterMap: mappedRegs,
	})
}

func (s *registerDebugSession) sendError(message string) {
	s.conn.WriteJSON(RegisterResponse{
		Type:    "error",
		Message: message,
	})
}

// HandleIMUData serves one live reading via REST API.
func (d *RegisterDebug) HandleIMUData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	d.mu.Lock()
	raw, err := sensors.ReadRaw(d.bus)
	d.mu.Unlock()
	if err != nil {
		http.Error(w, fmt.Sprintf("read error: %v", err), http.StatusInternalServerError)
		return
	}

	scaled := imu.Scale(raw)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(IMUData{
		Raw:      raw,
		Scaled:   scaled,
		Rotation: orientation.ComputeRotation(scaled.Accel),
	})
}

// RunRegisterDebug serves the register debug tool against the configured
// device, or the simulated one when USE_MOCK is set.
func RunRegisterDebug() error {
	cfg := config.Get()

	var bus sensors.Bus
	if cfg.UseMock {
		log.Println("register_debug: using simulated MPU-6050")
		bus = sensors.NewSimBus()
	} else {
		b, err := sensors.OpenI2C(cfg.I2CBus, cfg.DeviceAddr)
		if err != nil {
			return err
		}
		defer b.Close()
		bus = b
	}

	if id, err := sensors.WhoAmI(bus); err != nil {
		log.Printf("register_debug: WHO_AM_I read failed: %v", err)
	} else {
		log.Printf("register_debug: WHO_AM_I = %s", hexByte(id))
	}
	if cfg.RegisterDebugAllowedRanges == "" {
		log.Println("register_debug: writes disabled (REGISTER_DEBUG_ALLOWED_RANGES empty)")
	}

	addr := fmt.Sprintf(":%d", cfg.RegisterDebugPort)
	log.Printf("register_debug: listening on %s", addr)
	return http.ListenAndServe(addr, NewRegisterDebug(bus, cfg).Routes())
}
