package dispatch

import (
	"net"
	"testing"

	"github.com/northlane/tactoechat/pkg/session"
)

func TestParseSplitsVerbAndArgsLowercasesVerb(t *testing.T) {
	verb, args := Parse("!LOGIN alice secret")
	if verb != "!login" || args != "alice secret" {
		t.Fatalf("got verb=%q args=%q", verb, args)
	}
}

func TestParseNoArgs(t *testing.T) {
	verb, args := Parse("!who")
	if verb != "!who" || args != "" {
		t.Fatalf("got verb=%q args=%q", verb, args)
	}
}

func TestParseEmptyLine(t *testing.T) {
	verb, args := Parse("   ")
	if verb != "" || args != "" {
		t.Fatalf("expected empty verb/args, got verb=%q args=%q", verb, args)
	}
}

func TestParsePreservesArgCasingAndQuotes(t *testing.T) {
	verb, args := Parse(`!whisper "Long Name" Hello There`)
	if verb != "!whisper" || args != `"Long Name" Hello There` {
		t.Fatalf("got verb=%q args=%q", verb, args)
	}
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() { client.Close() })
	return session.New(1, srv, 256)
}

func TestRouterDispatchesToStateTable(t *testing.T) {
	r := NewRouter()
	var hitChatting, hitLogin bool
	r.Chatting.Register("!who", func(s *session.Session, args string) { hitChatting = true })
	r.Login.Register("!login", func(s *session.Session, args string) { hitLogin = true })

	s := newTestSession(t)
	s.SetState(session.Chatting)
	r.HandleLine(s, "!who")
	if !hitChatting {
		t.Fatalf("expected chatting table handler to run")
	}

	s.SetState(session.Login)
	r.HandleLine(s, "!login bob pw")
	if !hitLogin {
		t.Fatalf("expected login table handler to run")
	}
}

func TestRouterFallsBackWhenVerbUnregistered(t *testing.T) {
	r := NewRouter()
	var gotLine string
	r.Chatting.Fallback = func(s *session.Session, line string) { gotLine = line }

	s := newTestSession(t)
	s.SetState(session.Chatting)
	r.HandleLine(s, "hello there")
	if gotLine != "hello there" {
		t.Fatalf("expected fallback to receive full original line, got %q", gotLine)
	}
}
