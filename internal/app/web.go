// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/flight_gyro/internal/config"
	"github.com/relabs-tech/flight_gyro/internal/orientation"
)

var errMissingBroker = errors.New("MQTT_BROKER is not set")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// orientationFeed keeps the latest orientation received from MQTT and fans
// it out to websocket clients.
type orientationFeed struct {
	mu   sync.RWMutex
	last orientation.Orientation
	have bool
	subs map[chan orientation.Orientation]struct{}
}

func newOrientationFeed() *orientationFeed {
	return &orientationFeed{subs: make(map[chan orientation.Orientation]struct{})}
}

// update decodes an MQTT payload and stores it as the latest orientation.
func (f *orientationFeed) update(payload []byte) error {
	var o orientation.Orientation
	if err := json.Unmarshal(payload, &o); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = o
	f.have = true
	for ch := range f.subs {
		// slow clients miss intermediate updates
		select {
		case ch <- o:
		default:
		}
	}
	return nil
}

func (f *orientationFeed) subscribe() (chan orientation.Orientation, orientation.Orientation, bool) {
	ch := make(chan orientation.Orientation, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[ch] = struct{}{}
	return ch, f.last, f.have
}

func (f *orientationFeed) unsubscribe(ch chan orientation.Orientation) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

func (f *orientationFeed) handleOrientation(w http.ResponseWriter, r *http.Request) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.have {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f.last); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS streams every orientation update as a JSON text message.
func (f *orientationFeed) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch, last, have := f.subscribe()
	defer f.unsubscribe(ch)

	// The reader notices the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if have {
		if err := conn.WriteJSON(last); err != nil {
			return
		}
	}
	for {
		select {
		case <-done:
			return
		case o := <-ch:
			if err := conn.WriteJSON(o); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket write error: %v", err)
				}
				return
			}
		}
	}
}

func (f *orientationFeed) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", f.handleOrientation)
	mux.HandleFunc("/ws", f.handleWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb serves the latest orientation received over MQTT.
func RunWeb() error {
	cfg := config.Get()
	feed := newOrientationFeed()

	// 1) Connect to MQTT broker
	if cfg.MQTTBroker == "" {
		return errMissingBroker
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to the orientation topic
	token := client.Subscribe(cfg.TopicOrientation, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := feed.update(msg.Payload()); err != nil {
			log.Printf("web: MQTT payload unmarshal error: %v", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicOrientation)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, feed.routes())
}
