// Package dispatch parses one wire line into a verb and its argument
// remainder, and routes it to a state-guarded handler. Grounded on the
// teacher's verb-table pattern in pkg/server/commands.go (InitCommands'
// register/registerNG closures building a name->handler map) generalized
// from a single global command set to three per-state routing tables, and
// on login.go's ParseConnect for the split-on-first-whitespace idiom.
package dispatch

import (
	"strings"

	"github.com/northlane/tactoechat/pkg/session"
)

// Handler processes one parsed command for a session. args is the verbatim
// remainder after the verb (could be empty).
type Handler func(s *session.Session, args string)

// Parse splits a line into (verb, args) on the first whitespace run. The
// verb is lowercased; args is forwarded verbatim so quoted whisper targets,
// chat text, and credentials keep their original casing/spacing.
func Parse(line string) (verb, args string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:idx]), strings.TrimLeft(line[idx+1:], " \t")
}

// Table is a per-state verb routing table.
type Table struct {
	handlers map[string]Handler
	// Fallback handles anything not found in handlers. It receives the
	// full, unsplit line (not just the args remainder) so chat-message
	// handlers can broadcast the line verbatim rather than a mangled
	// "first word stripped" reconstruction. This covers both the
	// "unknown command" refusal in Login/Playing and the bare-chat-line
	// case in Chatting/Playing.
	Fallback Handler
}

// NewTable creates an empty routing table.
func NewTable() *Table {
	return &Table{handlers: make(map[string]Handler)}
}

// Register adds a verb handler. verb must already be lowercase.
func (t *Table) Register(verb string, h Handler) {
	t.handlers[verb] = h
}

// Dispatch looks up verb and calls its handler with args, or the table's
// Fallback with the full original line if the verb is unregistered.
func (t *Table) Dispatch(s *session.Session, verb, args, line string) {
	if h, ok := t.handlers[verb]; ok {
		h(s, args)
		return
	}
	if t.Fallback != nil {
		t.Fallback(s, line)
	}
}

// Router holds one Table per connection state and dispatches a raw line
// to whichever table matches the session's current state.
type Router struct {
	Login    *Table
	Chatting *Table
	Playing  *Table
}

// NewRouter creates a Router with three empty tables ready for registration.
func NewRouter() *Router {
	return &Router{
		Login:    NewTable(),
		Chatting: NewTable(),
		Playing:  NewTable(),
	}
}

// tableFor returns the table matching s's current state.
func (r *Router) tableFor(s *session.Session) *Table {
	switch s.State() {
	case session.Chatting:
		return r.Chatting
	case session.Playing:
		return r.Playing
	default:
		return r.Login
	}
}

// HandleLine parses and dispatches one raw wire line for s. Empty lines are
// the caller's responsibility (see protocol package / dispatch loop) and
// are not forwarded here.
func (r *Router) HandleLine(s *session.Session, line string) {
	verb, args := Parse(line)
	if verb == "" {
		return
	}
	r.tableFor(s).Dispatch(s, verb, args, line)
}
