// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/flight_gyro/internal/config"
	"github.com/relabs-tech/flight_gyro/internal/sensors"
)

func newRegisterDebug(t *testing.T, ranges string) (*httptest.Server, *sensors.SimBus) {
	t.Helper()
	cfg := config.Default()
	cfg.RegisterDebugAllowedRanges = ranges
	sim := sensors.NewSimBus()
	srv := httptest.NewServer(NewRegisterDebug(sim, cfg).Routes())
	t.Cleanup(srv.Close)
	return srv, sim
}

func dialRegisterDebug(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first RegisterResponse
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, "register_map", first.Type)
	require.Len(t, first.RegisterMap, len(sensors.RegisterMap()))
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, cmd map[string]string) RegisterResponse {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
	var resp RegisterResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestRegisterDebugSession(t *testing.T) {
	t.Parallel()

	srv, _ := newRegisterDebug(t, "0x19-0x1C")
	conn := dialRegisterDebug(t, srv)

	resp := roundTrip(t, conn, map[string]string{"action": "read", "addr": "0x75"})
	assert.Equal(t, "register_data", resp.Type)
	assert.Equal(t, "0x75", resp.Address)
	assert.Equal(t, "0x68", resp.Value)

	resp = roundTrip(t, conn, map[string]string{"action": "write", "addr": "0x1b", "value": "0x08"})
	assert.Equal(t, "write successful", resp.Message)
	resp = roundTrip(t, conn, map[string]string{"action": "read", "addr": "0x1B"})
	assert.Equal(t, "0x08", resp.Value)

	resp = roundTrip(t, conn, map[string]string{"action": "write", "addr": "0x6B", "value": "0x00"})
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Message, "not in allowed write ranges")

	resp = roundTrip(t, conn, map[string]string{"action": "wake"})
	assert.Equal(t, "awake", resp.Status)

	resp = roundTrip(t, conn, map[string]string{"action": "read_all"})
	assert.Equal(t, "0x00", resp.Registers["0x6B"])
	assert.Equal(t, "0x68", resp.Registers["0x75"])

	resp = roundTrip(t, conn, map[string]string{"action": "read", "addr": "zz"})
	assert.Equal(t, "error", resp.Type)

	resp = roundTrip(t, conn, map[string]string{"action": "reboot"})
	assert.Equal(t, "unknown action: reboot", resp.Message)
}

func TestRegisterDebugReadOnlyByDefault(t *testing.T) {
	t.Parallel()

	srv, sim := newRegisterDebug(t, "")
	conn := dialRegisterDebug(t, srv)

	resp := roundTrip(t, conn, map[string]string{"action": "write", "addr": "0x19", "value": "0x07"})
	assert.Equal(t, "error", resp.Type)

	v, err := sim.ReadRegister(sensors.RegSmplrtDiv)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestIMUDataEndpoint(t *testing.T) {
	t.Parallel()

	srv, sim := newRegisterDebug(t, "")
	require.NoError(t, sensors.Wake(sim))

	resp, err := http.Get(srv.URL + "/api/imu")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data IMUData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.NotZero(t, data.Raw.Az)
	assert.InDelta(t, 1.0, data.Scaled.Accel.X*data.Scaled.Accel.X+
		data.Scaled.Accel.Y*data.Scaled.Accel.Y+
		data.Scaled.Accel.Z*data.Scaled.Accel.Z, 0.01)

	sim.FailNextReads(1)
	resp2, err := http.Get(srv.URL + "/api/imu")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp2.StatusCode)
}
