// Package chat implements broadcast, whisper, dice-roll, rename, and
// moderator kick — the non-game verbs available once a session is
// Chatting. Grounded on the teacher's comsys_commands.go for message
// framing conventions (fmt.Sprintf notices, "Usage: ..." replies) and on
// descriptor.go's ConnManager for connected-user lookups, generalized from
// channel-scoped messaging to the flat single-room model this system uses.
package chat

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/northlane/tactoechat/pkg/credstore"
	"github.com/northlane/tactoechat/pkg/session"
)

// KickCounter is the subset of *metrics.Metrics the router needs, kept as
// an interface so tests can substitute a recording fake without importing
// pkg/metrics.
type KickCounter interface {
	IncKicks()
}

// Router wires the connected-user set and credential store together to
// implement the chat-facing verb set.
type Router struct {
	conns *session.Manager
	creds *credstore.Store
	kicks KickCounter
}

// New creates a chat Router. kicks may be nil, in which case kicks are not
// counted.
func New(conns *session.Manager, creds *credstore.Store, kicks KickCounter) *Router {
	return &Router{conns: conns, creds: creds, kicks: kicks}
}

// Broadcast sends a plain chat line from s to everyone else as
// "[sender]: text".
func (r *Router) Broadcast(s *session.Session, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	r.conns.SendToAll(fmt.Sprintf("[%s]: %s", s.Username(), text), s)
}

// Whisper handles `!whisper "Long Name" msg…` or `!whisper name msg…`.
func (r *Router) Whisper(s *session.Session, args string) {
	var target, msg string
	args = strings.TrimSpace(args)
	if strings.HasPrefix(args, `"`) {
		closeIdx := strings.IndexByte(args[1:], '"')
		if closeIdx < 0 {
			s.Send("[Server]: Missing closing quote on whisper target.")
			return
		}
		target = args[1 : 1+closeIdx]
		msg = strings.TrimSpace(args[1+closeIdx+1:])
	} else {
		idx := strings.IndexAny(args, " \t")
		if idx < 0 {
			s.Send("[Server]: Usage: !whisper <name> <message>")
			return
		}
		target = args[:idx]
		msg = strings.TrimSpace(args[idx+1:])
	}

	if target == "" || msg == "" {
		s.Send("[Server]: Usage: !whisper <name> <message>")
		return
	}

	dest, ok := r.conns.Lookup(target)
	if !ok {
		s.Send(fmt.Sprintf("[Server]: %s is not online.", target))
		return
	}
	dest.Send(fmt.Sprintf("[Whisper from %s]: %s", s.Username(), msg))
	s.Send(fmt.Sprintf("[You whispered to %s]: %s", dest.Username(), msg))
}

// Roll handles `!roll [N]`; default max is 6.
func (r *Router) Roll(s *session.Session, args string) {
	max := 6
	args = strings.TrimSpace(args)
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 {
			s.Send("[Server]: Usage: !roll [N] where N is an integer >= 1.")
			return
		}
		max = n
	}
	result := rand.IntN(max) + 1
	r.conns.SendToAll(fmt.Sprintf("[Roll] %s rolled a %d (1 – %d)", s.Username(), result, max))
}

// Rename handles `!user newName`.
func (r *Router) Rename(s *session.Session, newName string) {
	newName = strings.TrimSpace(newName)
	oldName := s.Username()
	if oldName == "" {
		s.Send("[Server]: You must be logged in to rename yourself.")
		return
	}
	if ok, reason := credstore.ValidateUsername(newName); !ok {
		s.Send(fmt.Sprintf("[Server]: %s", reason))
		return
	}
	if r.conns.IsNameTaken(newName) {
		s.Send("[Server]: That name is already in use.")
		return
	}
	if err := r.creds.TryUpdateUsername(oldName, newName); err != nil {
		s.Send(fmt.Sprintf("[Server]: %s", err))
		return
	}
	r.conns.Rebind(s, oldName, newName)
	r.conns.SendToAll(fmt.Sprintf("[%s] is now known as [%s]", oldName, newName))
}

// Kick handles `!kick name`, usable only by a moderator session. Refuses
// self-kick and mod-on-mod.
func (r *Router) Kick(s *session.Session, targetName string) {
	if !s.IsModerator() {
		s.Send("[Server]: You are not a moderator.")
		return
	}
	targetName = strings.TrimSpace(targetName)
	target, ok := r.conns.Lookup(targetName)
	if !ok {
		s.Send(fmt.Sprintf("[Server]: %s is not online.", targetName))
		return
	}
	if target == s {
		s.Send("[Server]: You cannot kick yourself.")
		return
	}
	if target.IsModerator() {
		s.Send("[Server]: You cannot kick another moderator.")
		return
	}
	target.Send(fmt.Sprintf("You were kicked by %s.", s.Username()))
	target.Close()
	r.conns.SendToAll(fmt.Sprintf("[Server]: %s was kicked by %s.", target.Username(), s.Username()))
	if r.kicks != nil {
		r.kicks.IncKicks()
	}
}

// Who lists every connected username, one per line, to s.
func (r *Router) Who(s *session.Session) {
	var b strings.Builder
	b.WriteString("[Server]: Connected users:")
	for _, other := range r.conns.Snapshot() {
		if other.Username() == "" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(other.Username())
	}
	s.Send(b.String())
}

// Scores sends the leaderboard to s, one user per line, sorted by wins
// desc, draws desc — ties broken by registration order, as returned by the
// credential store.
func (r *Router) Scores(s *session.Session) {
	rows, err := r.creds.GetAllScores()
	if err != nil {
		s.Send("[Server]: Scores are temporarily unavailable.")
		return
	}
	if len(rows) == 0 {
		s.Send("[Server]: No scores recorded yet.")
		return
	}
	s.Send("[Server]: Leaderboard:")
	for _, row := range rows {
		s.Send(fmt.Sprintf("%s  W:%d L:%d D:%d", row.Username, row.Wins, row.Losses, row.Draws))
	}
}
