package chat

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/northlane/tactoechat/pkg/credstore"
	"github.com/northlane/tactoechat/pkg/session"
)

type wired struct {
	s      *session.Session
	client net.Conn
	lines  chan string
}

// newWired drains the client end of the pipe in the background: Session.Send
// blocks on a net.Pipe until the peer reads, so the router calls below must
// never wait on the test goroutine's own later readLine.
func newWired(t *testing.T, id int, name string) *wired {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() { client.Close() })
	s := session.New(id, srv, 4096)
	s.SetUsername(name)
	w := &wired{s: s, client: client, lines: make(chan string, 64)}
	go func() {
		r := bufio.NewReader(client)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			w.lines <- strings.TrimRight(line, "\r\n")
		}
	}()
	return w
}

func (w *wired) readLine(t *testing.T) string {
	t.Helper()
	select {
	case line := <-w.lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatalf("readLine: timed out waiting for a line")
		return ""
	}
}

func newTestRouter(t *testing.T) (*Router, *session.Manager) {
	t.Helper()
	creds, err := credstore.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("credstore.Open: %v", err)
	}
	t.Cleanup(func() { creds.Close() })
	creds.TryRegister("Alice", "pw")
	creds.TryRegister("Bob", "pw")

	conns := session.NewManager()
	return New(conns, creds, nil), conns
}

type fakeKickCounter struct{ n int }

func (f *fakeKickCounter) IncKicks() { f.n++ }

func TestBroadcastExcludesSender(t *testing.T) {
	r, conns := newTestRouter(t)
	alice := newWired(t, conns.NextID(), "Alice")
	bob := newWired(t, conns.NextID(), "Bob")
	conns.Add(alice.s)
	conns.Add(bob.s)
	conns.BindUsername(alice.s, "Alice")
	conns.BindUsername(bob.s, "Bob")

	r.Broadcast(alice.s, "hello")

	got := bob.readLine(t)
	if got != "[Alice]: hello" {
		t.Fatalf("expected bob to see %q, got %q", "[Alice]: hello", got)
	}
}

func TestWhisperQuotedTarget(t *testing.T) {
	r, conns := newTestRouter(t)
	alice := newWired(t, conns.NextID(), "Alice")
	bob := newWired(t, conns.NextID(), "Long Name")
	conns.Add(alice.s)
	conns.Add(bob.s)
	conns.BindUsername(alice.s, "Alice")
	conns.BindUsername(bob.s, "Long Name")

	r.Whisper(alice.s, `"Long Name" hey there`)

	got := bob.readLine(t)
	if got != "[Whisper from Alice]: hey there" {
		t.Fatalf("unexpected whisper delivery: %q", got)
	}
	gotSelf := alice.readLine(t)
	if gotSelf != "[You whispered to Long Name]: hey there" {
		t.Fatalf("unexpected whisper echo: %q", gotSelf)
	}
}

func TestWhisperMissingClosingQuoteRejected(t *testing.T) {
	r, conns := newTestRouter(t)
	alice := newWired(t, conns.NextID(), "Alice")
	conns.Add(alice.s)
	conns.BindUsername(alice.s, "Alice")

	r.Whisper(alice.s, `"Long Name hey there`)
	got := alice.readLine(t)
	if !strings.Contains(got, "Missing closing quote") {
		t.Fatalf("expected missing-quote rejection, got %q", got)
	}
}

func TestRenameUpdatesStoreAndLiveIndex(t *testing.T) {
	r, conns := newTestRouter(t)
	alice := newWired(t, conns.NextID(), "Alice")
	conns.Add(alice.s)
	conns.BindUsername(alice.s, "Alice")

	r.Rename(alice.s, "Alicia")

	got := alice.readLine(t)
	if got != "[Alice] is now known as [Alicia]" {
		t.Fatalf("unexpected rename broadcast: %q", got)
	}
	if alice.s.Username() != "Alicia" {
		t.Fatalf("expected session username updated, got %q", alice.s.Username())
	}
	if !conns.IsNameTaken("alicia") {
		t.Fatalf("expected live index updated to new name")
	}
	if _, err := r.creds.TryLogin("alicia", "pw"); err != nil {
		t.Fatalf("expected store updated to new name: %v", err)
	}
}

func TestKickRefusesSelfAndModOnMod(t *testing.T) {
	r, conns := newTestRouter(t)
	alice := newWired(t, conns.NextID(), "Alice")
	bob := newWired(t, conns.NextID(), "Bob")
	conns.Add(alice.s)
	conns.Add(bob.s)
	conns.BindUsername(alice.s, "Alice")
	conns.BindUsername(bob.s, "Bob")
	alice.s.SetModerator(true)
	bob.s.SetModerator(true)

	r.Kick(alice.s, "Alice")
	got := alice.readLine(t)
	if !strings.Contains(got, "cannot kick yourself") {
		t.Fatalf("expected self-kick refusal, got %q", got)
	}

	r.Kick(alice.s, "Bob")
	got = alice.readLine(t)
	if !strings.Contains(got, "cannot kick another moderator") {
		t.Fatalf("expected mod-on-mod refusal, got %q", got)
	}
}

func TestKickByNonModeratorRefused(t *testing.T) {
	r, conns := newTestRouter(t)
	alice := newWired(t, conns.NextID(), "Alice")
	bob := newWired(t, conns.NextID(), "Bob")
	conns.Add(alice.s)
	conns.Add(bob.s)
	conns.BindUsername(alice.s, "Alice")
	conns.BindUsername(bob.s, "Bob")

	r.Kick(alice.s, "Bob")
	got := alice.readLine(t)
	if !strings.Contains(got, "not a moderator") {
		t.Fatalf("expected not-a-moderator refusal, got %q", got)
	}
}

func TestKickIncrementsCounterOnSuccess(t *testing.T) {
	creds, err := credstore.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("credstore.Open: %v", err)
	}
	t.Cleanup(func() { creds.Close() })
	creds.TryRegister("Alice", "pw")
	creds.TryRegister("Bob", "pw")

	conns := session.NewManager()
	kicks := &fakeKickCounter{}
	r := New(conns, creds, kicks)

	alice := newWired(t, conns.NextID(), "Alice")
	bob := newWired(t, conns.NextID(), "Bob")
	conns.Add(alice.s)
	conns.Add(bob.s)
	conns.BindUsername(alice.s, "Alice")
	conns.BindUsername(bob.s, "Bob")
	alice.s.SetModerator(true)

	r.Kick(alice.s, "Bob")
	if kicks.n != 1 {
		t.Fatalf("expected 1 kick counted, got %d", kicks.n)
	}
}
