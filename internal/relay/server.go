package relay

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the HTTP handler that upgrades incoming connections to
// websockets and hands them to a Hub, one room per document.
type Server struct {
	hub *Hub
}

// NewServer returns a Server backed by a fresh Hub.
func NewServer() *Server {
	return &Server{hub: NewHub()}
}

// Handler returns the http.Handler to mount at a path like "/relay/".
// The document ID is whatever follows the mount prefix in the URL path.
func (s *Server) Handler(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		docID := strings.TrimPrefix(r.URL.Path, prefix)
		if docID == "" {
			http.Error(w, "missing document id", http.StatusBadRequest)
			return
		}
		s.handleConnection(w, r, docID)
	})
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request, docID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("relay: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.hub.Join(docID, conn)
	defer s.hub.Leave(docID, conn)
	log.Printf("relay: %s joined (room size %d)", docID, s.hub.Size(docID))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("relay: %s disconnected: %v", docID, err)
			return
		}
		if errs := s.hub.Broadcast(docID, conn, msg); len(errs) > 0 {
			log.Printf("relay: %s broadcast had %d failed writes", docID, len(errs))
		}
	}
}
