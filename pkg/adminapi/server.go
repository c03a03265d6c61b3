package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/northlane/tactoechat/pkg/credstore"
	"github.com/northlane/tactoechat/pkg/game"
	"github.com/northlane/tactoechat/pkg/session"
)

// Server is the admin HTTP surface: JWT login plus read-only who/scores/
// status endpoints and the spectator websocket feed. Grounded on the
// teacher's WebServer in pkg/server/websrv.go (mux + auth + upgrader
// bundled on one struct, registerRoutes building the mux once at
// construction).
type Server struct {
	mux   *http.ServeMux
	auth  *AuthService
	conns *session.Manager
	creds *credstore.Store
	coord *game.Coordinator
	feed  *Feed

	httpSrv *http.Server
}

// NewServer builds the admin mux and binds it to the live server state.
func NewServer(auth *AuthService, conns *session.Manager, creds *credstore.Store, coord *game.Coordinator) *Server {
	s := &Server{
		mux:   http.NewServeMux(),
		auth:  auth,
		conns: conns,
		creds: creds,
		coord: coord,
		feed:  NewFeed(),
	}
	s.registerRoutes()
	return s
}

// Feed returns the spectator feed so the game coordinator's wiring layer
// can push board-state events into it.
func (s *Server) Feed() *Feed { return s.feed }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/v1/login", s.handleLogin)
	s.mux.Handle("GET /api/v1/who", authMiddleware(s.auth, http.HandlerFunc(s.handleWho)))
	s.mux.Handle("GET /api/v1/scores", authMiddleware(s.auth, http.HandlerFunc(s.handleScores)))
	s.mux.Handle("GET /api/v1/status", authMiddleware(s.auth, http.HandlerFunc(s.handleStatus)))
	s.mux.HandleFunc("GET /ws/spectate", s.handleSpectate)
}

// ListenAndServe binds and serves the admin mux on addr. Blocks until the
// server stops or errors.
func (s *Server) ListenAndServe(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.mux}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the admin HTTP server, letting in-flight
// requests finish until ctx is done, matching the teacher's
// WebServer.Stop(ctx) over httpSrv.Shutdown.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpSrv != nil {
		s.httpSrv.Shutdown(ctx)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	token, err := s.auth.Login(body.Password)
	if err != nil {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (s *Server) handleWho(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name        string `json:"name"`
		State       string `json:"state"`
		IsModerator bool   `json:"is_moderator"`
		ConnSeconds int    `json:"conn_seconds"`
		Connected   string `json:"connected"`
	}
	now := time.Now()
	var entries []entry
	for _, sess := range s.conns.Snapshot() {
		if sess.Username() == "" {
			continue
		}
		entries = append(entries, entry{
			Name:        sess.Username(),
			State:       sess.State().String(),
			IsModerator: sess.IsModerator(),
			ConnSeconds: int(now.Sub(sess.ConnTime).Seconds()),
			Connected:   humanize.Time(sess.ConnTime),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"players": entries, "count": len(entries)})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	rows, err := s.creds.GetAllScores()
	if err != nil {
		http.Error(w, `{"error":"store unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"scores": rows})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p1, p2, turn := s.coord.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"connected_sessions": s.conns.Count(),
		"match": map[string]string{
			"player1":      p1,
			"player2":      p2,
			"current_turn": turn,
		},
	})
}
