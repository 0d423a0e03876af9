// Package notifysvc broadcasts domain events to websocket subscribers.
// Clients subscribe per lab; every event carries the lab it belongs to.
package notifysvc

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/trezcool/labtrack/core"
)

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes on the connection
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type room struct {
	clients map[*client]struct{}
}

// Hub fans lab events out to the websocket clients watching each lab.
// Publish is fire-and-forget: a dead client is dropped, never retried, and
// event delivery never blocks the publishing service.
type Hub struct {
	logger core.Logger

	mu    sync.Mutex
	rooms map[string]*room // keyed by lab ID
}

var _ core.EventPublisher = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]*room),
	}
}

// Join registers conn as a watcher of labID and returns a leave function.
// The caller keeps servicing the connection's read side; the hub only
// writes.
func (h *Hub) Join(labID string, conn *websocket.Conn) (leave func()) {
	cl := &client{conn: conn}

	h.mu.Lock()
	rm, ok := h.rooms[labID]
	if !ok {
		rm = &room{clients: make(map[*client]struct{})}
		h.rooms[labID] = rm
	}
	rm.clients[cl] = struct{}{}
	h.mu.Unlock()

	return func() { h.leave(labID, cl) }
}

func (h *Hub) leave(labID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[labID]
	if !ok {
		return
	}
	delete(rm.clients, cl)
	if len(rm.clients) == 0 {
		delete(h.rooms, labID)
	}
}

func (h *Hub) Publish(events ...core.Event) {
	for _, ev := range events {
		h.mu.Lock()
		rm, ok := h.rooms[ev.LabID]
		if !ok {
			h.mu.Unlock()
			continue
		}
		clients := make([]*client, 0, len(rm.clients))
		for cl := range rm.clients {
			clients = append(clients, cl)
		}
		h.mu.Unlock()

		for _, cl := range clients {
			cl := cl
			ev := ev
			go func() {
				if err := cl.writeJSON(ev); err != nil {
					h.logger.Debug("dropping dead event subscriber", err)
					h.leave(ev.LabID, cl)
					_ = cl.conn.Close()
				}
			}()
		}
	}
}

// Close closes every subscribed connection. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for labID, rm := range h.rooms {
		for cl := range rm.clients {
			_ = cl.conn.Close()
		}
		delete(h.rooms, labID)
	}
}
