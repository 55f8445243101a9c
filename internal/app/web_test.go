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

	"github.com/relabs-tech/flight_gyro/internal/imu"
	"github.com/relabs-tech/flight_gyro/internal/orientation"
)

func payloadFor(t *testing.T, rx float64) []byte {
	t.Helper()
	b, err := json.Marshal(orientation.Orientation{
		Acceleration: imu.Vector{Z: 1},
		Rotation:     imu.Vector{X: rx, Z: -90},
		Time:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestOrientationAPI(t *testing.T) {
	t.Parallel()

	feed := newOrientationFeed()
	srv := httptest.NewServer(feed.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, feed.update(payloadFor(t, 12.5)))

	resp, err = http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got orientation.Orientation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 12.5, got.Rotation.X)
	assert.Equal(t, -90.0, got.Rotation.Z)
}

func TestFeedRejectsBadPayload(t *testing.T) {
	t.Parallel()

	feed := newOrientationFeed()
	assert.Error(t, feed.update([]byte("not json")))

	rr := httptest.NewRecorder()
	feed.handleOrientation(rr, httptest.NewRequest(http.MethodGet, "/api/orientation", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestOrientationStream(t *testing.T) {
	t.Parallel()

	feed := newOrientationFeed()
	require.NoError(t, feed.update(payloadFor(t, 1)))

	srv := httptest.NewServer(feed.routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	// latest value first
	var got orientation.Orientation
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 1.0, got.Rotation.X)

	// then live updates, once the handler has subscribed
	require.Eventually(t, func() bool {
		feed.mu.RLock()
		defer feed.mu.RUnlock()
		return len(feed.subs) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, feed.update(payloadFor(t, 2)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 2.0, got.Rotation.X)
}
