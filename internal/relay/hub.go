// Package relay implements the in-process fan-out a replica's CRDTText
// client talks to instead of a pub/sub broker: every message one connected
// replica sends for a document is rebroadcast verbatim to every other
// replica connected to that same document, and to no one else.
package relay

import (
	stdsync "sync"

	"github.com/gorilla/websocket"
)

// Hub owns one room per document ID, created lazily on first join and
// dropped once its last client leaves.
type Hub struct {
	mu    stdsync.Mutex
	rooms map[string]*room
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

type room struct {
	mu      stdsync.Mutex
	clients map[*websocket.Conn]bool
}

// Join registers conn as a member of docID's room, creating the room if
// this is its first member.
func (h *Hub) Join(docID string, conn *websocket.Conn) {
	h.mu.Lock()
	r, ok := h.rooms[docID]
	if !ok {
		r = &room{clients: make(map[*websocket.Conn]bool)}
		h.rooms[docID] = r
	}
	h.mu.Unlock()

	r.mu.Lock()
	r.clients[conn] = true
	r.mu.Unlock()
}

// Leave removes conn from docID's room, dropping the room entirely once it
// has no members left.
func (h *Hub) Leave(docID string, conn *websocket.Conn) {
	h.mu.Lock()
	r, ok := h.rooms[docID]
	h.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.clients, conn)
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if empty {
		h.mu.Lock()
		delete(h.rooms, docID)
		h.mu.Unlock()
	}
}

// Broadcast fans msg out to every member of docID's room other than from.
// Members whose write fails are left for their own read loop to notice
// and Leave; Broadcast never removes a client itself.
func (h *Hub) Broadcast(docID string, from *websocket.Conn, msg []byte) []error {
	h.mu.Lock()
	r, ok := h.rooms[docID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	r.mu.Lock()
	peers := make([]*websocket.Conn, 0, len(r.clients))
	for c := range r.clients {
		if c != from {
			peers = append(peers, c)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, c := range peers {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Size reports how many clients are currently joined to docID's room.
func (h *Hub) Size(docID string) int {
	h.mu.Lock()
	r, ok := h.rooms[docID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
