// Package live streams controller events to WebSocket clients as JSON.
package live

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/thermo.go/pkg/host"
	"github.com/robotalks/thermo.go/pkg/telemetry"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

// DefaultClientBuffer is the number of messages buffered per client.
const DefaultClientBuffer = 16

// Hub implements host.Observer and broadcasts events to connected clients.
// Slow clients miss messages instead of blocking the control loop.
type Hub struct {
	host.NopObserver

	ClientBuffer int

	lock    sync.Mutex
	clients map[*client]struct{}
	closed  bool
	now     func() time.Time
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{
		ClientBuffer: DefaultClientBuffer,
		clients:      make(map[*client]struct{}),
		now:          time.Now,
	}
}

// Name implements framework.Named.
func (h *Hub) Name() string {
	return "live"
}

// Run implements framework.Runnable. Clients are disconnected when ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.lock.Lock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.lock.Unlock()
	return ctx.Err()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Handler serves the WebSocket endpoint.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, h.ClientBuffer)}
	if !h.add(c) {
		return
	}
	glog.V(1).Infof("live client %s connected", conn.Request().RemoteAddr)
	go func() {
		// clients don't send anything, read to detect close
		var msg []byte
		for websocket.Message.Receive(conn, &msg) == nil {
		}
		h.remove(c)
	}()
	for data := range c.send {
		if err := websocket.Message.Send(conn, string(data)); err != nil {
			glog.V(1).Infof("live client %s: %v", conn.Request().RemoteAddr, err)
			h.remove(c)
			break
		}
	}
	glog.V(1).Infof("live client %s disconnected", conn.Request().RemoteAddr)
}

func (h *Hub) add(c *client) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	h.removeLocked(c)
	h.lock.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends the event to all clients.
func (h *Hub) Broadcast(e *telemetry.Event) {
	data, err := json.Marshal(jsonFields(e))
	if err != nil {
		glog.Errorf("encode %s event error: %v", e.Kind, err)
		return
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// jsonFields flattens the event, omitting non-finite numbers.
func jsonFields(e *telemetry.Event) map[string]interface{} {
	m := map[string]interface{}{"kind": e.Kind, "time": e.Time}
	for key, val := range e.Fields {
		if v, ok := val.(float64); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
			continue
		}
		m[key] = val
	}
	return m
}

// ReadingDecoded implements host.Observer.
func (h *Hub) ReadingDecoded(rec *thermistor.Thermistor, temp float64, valid bool) {
	r := &telemetry.Reading{
		Name:        rec.Name,
		Resistance:  rec.Resistance,
		Temperature: temp,
		Valid:       valid,
		Time:        h.now(),
	}
	h.Broadcast(r.Event())
}

// DutyApplied implements host.Observer.
func (h *Hub) DutyApplied(duty uint8, temp float64) {
	h.Broadcast(&telemetry.Event{
		Kind:   telemetry.KindDuty,
		Time:   h.now(),
		Fields: map[string]interface{}{"duty": duty, "temperature": temp},
	})
}

// LinkChanged implements host.Observer.
func (h *Hub) LinkChanged(from, to watchdog.Phase) {
	h.Broadcast(&telemetry.Event{
		Kind:   telemetry.KindLink,
		Time:   h.now(),
		Fields: map[string]interface{}{"from": from.String(), "phase": to.String()},
	})
}
