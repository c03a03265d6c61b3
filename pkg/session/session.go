// Package session tracks per-connection state for the lifetime of a TCP
// client: identity, role, dispatcher state, and framed I/O. Grounded on the
// teacher's Descriptor/ConnManager pair in pkg/server/descriptor.go — the
// connected-user set here is the direct analogue of ConnManager, scaled
// down from room/player-DBRef routing to the flat broadcast-everyone model
// this system needs.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/northlane/tactoechat/pkg/protocol"
)

// State is the connection's position in the login/chat/play state machine.
type State int

const (
	// Login is the state before successful authentication.
	Login State = iota
	// Chatting is the post-auth, not-in-a-game state.
	Chatting
	// Playing is the state while occupying a Tic-Tac-Toe slot.
	Playing
)

func (s State) String() string {
	switch s {
	case Login:
		return "Login"
	case Chatting:
		return "Chatting"
	case Playing:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Slot identifies which Tic-Tac-Toe player role a session occupies, if any.
type Slot int

const (
	// NoSlot means the session is not part of the current match.
	NoSlot Slot = iota
	// Slot1 plays cross and may !startgame.
	Slot1
	// Slot2 plays naught.
	Slot2
)

// Session is one client connection's mutable state for as long as the
// transport stays open.
type Session struct {
	ID     int
	Conn   net.Conn
	Framer *protocol.Framer
	Addr   string

	ConnTime time.Time

	mu           sync.Mutex
	username     string
	state        State
	slot         Slot
	isModerator  bool
	disconnected bool
	closed       bool
}

// New wraps conn into a Session in the Login state.
func New(id int, conn net.Conn, maxLine int) *Session {
	return &Session{
		ID:       id,
		Conn:     conn,
		Framer:   protocol.NewFramer(conn, maxLine),
		Addr:     conn.RemoteAddr().String(),
		ConnTime: time.Now(),
		state:    Login,
	}
}

// Send writes one line to the client, ensuring a trailing newline. Write
// errors are swallowed here — the caller learns about a dead peer from its
// own ReadLine loop, matching the teacher's fire-and-forget Descriptor.Send.
func (s *Session) Send(msg string) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = s.Framer.WriteLine(msg)
}

// Close shuts down the transport. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.Conn.Close()
}

// IsClosed reports whether Close has already run.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MarkDisconnected flips the idempotency flag and reports whether this call
// is the one that actually transitioned it (false → true). Callers use this
// to ensure dropout recovery and removal run exactly once per session.
func (s *Session) MarkDisconnected() (transitioned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return false
	}
	s.disconnected = true
	return true
}

// Username returns the authenticated display name, or "" before login.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// SetUsername sets the authenticated display name.
func (s *Session) SetUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = name
}

// State returns the current state machine position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to a new state.
func (s *Session) SetState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Slot returns the session's Tic-Tac-Toe slot, if any.
func (s *Session) Slot() Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot
}

// SetSlot assigns (or clears, with NoSlot) the session's match slot.
func (s *Session) SetSlot(sl Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = sl
}

// IsModerator reports the moderator flag. Mutable only through SetModerator,
// which the host console's !mod calls and the login/register handlers call
// for configured moderator names — this flag is never persisted.
func (s *Session) IsModerator() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isModerator
}

// SetModerator sets or clears the moderator flag.
func (s *Session) SetModerator(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isModerator = v
}
