package adminapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// BoardEvent is one JSON event pushed to every connected spectator: the
// board's 9-cell string plus whose turn it is, sent after every legal
// move and on reset.
type BoardEvent struct {
	Board string `json:"board"`
	Turn  string `json:"turn"`
}

// Feed fans BoardEvents out to every connected spectator websocket.
// Grounded on the teacher's websrv.go websocket.Upgrader usage, scaled
// down from a full duplex player transport to a write-only broadcast.
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewFeed creates an empty spectator feed.
func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Publish sends ev to every connected spectator. A write failure quarantines
// that client: it is dropped from the feed and its connection closed.
func (f *Feed) Publish(ev BoardEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	f.mu.Lock()
	dead := make([]*websocket.Conn, 0)
	for c := range f.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		delete(f.clients, c)
		c.Close()
	}
	f.mu.Unlock()
}

func (s *Server) handleSpectate(w http.ResponseWriter, r *http.Request) {
	conn, err := s.feed.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[adminapi] spectator upgrade failed: %v", err)
		return
	}
	s.feed.mu.Lock()
	s.feed.clients[conn] = struct{}{}
	s.feed.mu.Unlock()

	// Spectators are write-only; drain any client frames (pings, close)
	// until the connection drops, then deregister.
	go func() {
		defer func() {
			s.feed.mu.Lock()
			delete(s.feed.clients, conn)
			s.feed.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
