// Package frontdoor binds the TCP listener, accepts connections, spawns
// sessions, and coordinates graceful shutdown. Grounded on the teacher's
// Server.Start/acceptLoop/Stop in pkg/server/server.go — the same
// net.Listen/goroutine-per-connection/errors.Is(net.ErrClosed) idiom,
// trimmed to a single cleartext listener (TLS is an explicit non-goal).
package frontdoor

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/northlane/tactoechat/pkg/session"
)

// Handler processes one accepted connection for its entire lifetime. It
// must not return until the connection is done (read loop exited).
type Handler func(s *session.Session)

// Server is the TCP front door.
type Server struct {
	port    int
	maxLine int
	conns   *session.Manager
	handle  Handler

	mu       sync.Mutex
	listener net.Listener
}

// New creates a front door bound to port, the shared connection manager,
// and the per-connection handler that runs the session's read loop.
func New(port, maxLine int, conns *session.Manager, handle Handler) *Server {
	return &Server{port: port, maxLine: maxLine, conns: conns, handle: handle}
}

// ListenAndServe binds an IPv4 listener on any address at the configured
// port and accepts connections until Shutdown is called. A bind failure
// (e.g. address already in use) is returned immediately.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("frontdoor: bind port %d: %w", s.port, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Printf("[frontdoor] listening on port %d", s.port)
	s.acceptLoop(ln)
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[frontdoor] accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	id := s.conns.NextID()
	sess := session.New(id, conn, s.maxLine)
	s.conns.Add(sess)
	defer s.conns.Remove(sess)
	s.handle(sess)
}

// Shutdown closes the listener and every connected session. Best-effort:
// close errors are swallowed, matching the teacher's Stop().
func (s *Server) Shutdown() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	for _, sess := range s.conns.Snapshot() {
		sess.Close()
	}
}
