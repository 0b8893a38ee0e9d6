// Package ringserver hosts the simulator as a long-running process: a
// gRPC health endpoint plus a websocket stream that republishes each
// Simulate call's RingMined/InvalidRingEvent events as JSON frames.
package ringserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LoopringSecondary/protocol2-js/internal/grpc"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/engine"
)

// Event is one frame pushed to every connected websocket client.
type Event struct {
	Type      string                   `json:"type"` // "ringMined" | "invalidRing"
	RingMined *engine.RingMined        `json:"ringMined,omitempty"`
	Invalid   *engine.InvalidRingEvent `json:"invalidRing,omitempty"`
}

// Server bundles the health-check gRPC server with a websocket event
// broadcaster. Publish is called once per completed Simulate run.
type Server struct {
	grpcServer *grpc.Server
	ws         *eventHub
}

func New(grpcCfg *grpc.ServerConfig) (*Server, error) {
	gs, err := grpc.NewServer(grpcCfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		grpcServer: gs,
		ws:         newEventHub(),
	}, nil
}

// ServeHTTP exposes the websocket upgrade endpoint for mounting on an
// http.Server alongside the gRPC listener.
func (s *Server) ServeHTTP() http.Handler {
	return s.ws
}

// StartGRPC blocks serving the health-check gRPC endpoint.
func (s *Server) StartGRPC() error {
	return s.grpcServer.Start()
}

func (s *Server) StopGRPC() {
	s.grpcServer.Stop()
}

// Publish fans a completed report's events out to every connected
// websocket client.
func (s *Server) Publish(report *engine.Report) {
	for i := range report.RingMinedEvents {
		s.ws.broadcast(Event{Type: "ringMined", RingMined: &report.RingMinedEvents[i]})
	}
	for i := range report.InvalidRingEvents {
		s.ws.broadcast(Event{Type: "invalidRing", Invalid: &report.InvalidRingEvents[i]})
	}
}

// eventHub is a minimal broadcast-only websocket hub: clients subscribe
// implicitly by connecting and receive every event, mirroring the
// connections-map-plus-sendChannel shape the pack's richer RPC websocket
// server uses, without the subscribe/unsubscribe command layer this
// one-way event feed doesn't need.
type eventHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newEventHub() *eventHub {
	return &eventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *eventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ringserver: websocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

// readLoop exists only to detect the client going away (this feed is
// one-directional; incoming frames are discarded).
func (h *eventHub) readLoop(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *eventHub) writeLoop(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *eventHub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *eventHub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ringserver: encode event: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("ringserver: dropping slow websocket client")
		}
	}
}
