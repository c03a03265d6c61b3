// Package host implements the local operator console: privileged commands
// typed at the server's own stdin, never sent over the wire by any client.
// Grounded on the teacher's debug.go for its terse log.Printf-based local
// diagnostics idiom; the read-eval loop itself is new, since the teacher
// has no interactive local console of its own.
package host

import (
	"bufio"
	"io"
	"log"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/northlane/tactoechat/pkg/credstore"
	"github.com/northlane/tactoechat/pkg/session"
)

// Console reads operator lines and executes !mod, !mods, !kick, !dbtest.
type Console struct {
	conns *session.Manager
	creds *credstore.Store
}

// New creates a Console bound to the live connection manager and
// credential store.
func New(conns *session.Manager, creds *credstore.Store) *Console {
	return &Console{conns: conns, creds: creds}
}

// Run reads lines from r until EOF or the scanner errors, dispatching each
// to Handle. Intended to be run in its own goroutine over os.Stdin.
func (c *Console) Run(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.Handle(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[host] console input error: %v", err)
	}
}

// Handle executes one local console line.
func (c *Console) Handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	idx := strings.IndexAny(line, " \t")
	verb := line
	args := ""
	if idx >= 0 {
		verb = line[:idx]
		args = strings.TrimSpace(line[idx+1:])
	}

	switch strings.ToLower(verb) {
	case "!mod":
		c.mod(args)
	case "!mods":
		c.mods()
	case "!kick":
		c.kick(args)
	case "!dbtest":
		c.dbtest()
	case "!who":
		c.who()
	default:
		log.Printf("[host] unknown console command: %s", verb)
	}
}

func (c *Console) mod(name string) {
	s, ok := c.conns.Lookup(name)
	if !ok {
		log.Printf("[host] %s is not online.", name)
		return
	}
	newState := !s.IsModerator()
	s.SetModerator(newState)
	if newState {
		s.Send("[Server]: You have been made a moderator.")
		log.Printf("[host] %s is now a moderator.", s.Username())
	} else {
		s.Send("[Server]: Your moderator status has been revoked.")
		log.Printf("[host] %s is no longer a moderator.", s.Username())
	}
}

func (c *Console) mods() {
	var names []string
	for _, s := range c.conns.Snapshot() {
		if s.IsModerator() {
			names = append(names, s.Username())
		}
	}
	if len(names) == 0 {
		log.Printf("[host] no moderators currently connected.")
		return
	}
	log.Printf("[host] moderators: %s", strings.Join(names, ", "))
}

func (c *Console) kick(name string) {
	s, ok := c.conns.Lookup(name)
	if !ok {
		log.Printf("[host] %s is not online.", name)
		return
	}
	s.Send("You were kicked by the host.")
	s.Close()
	log.Printf("[host] force-closed session for %s.", name)
}

func (c *Console) who() {
	sessions := c.conns.Snapshot()
	if len(sessions) == 0 {
		log.Printf("[host] no sessions connected.")
		return
	}
	for _, s := range sessions {
		name := s.Username()
		if name == "" {
			name = "(not logged in)"
		}
		log.Printf("[host] %s  %s  connected %s", name, s.State(), humanize.Time(s.ConnTime))
	}
}

func (c *Console) dbtest() {
	ok := c.creds.TestConnection()
	if ok {
		log.Printf("[host] credential store: reachable.")
	} else {
		log.Printf("[host] credential store: unreachable.")
	}
}
