package session

import (
	"net"
	"testing"
)

func newTestSession(t *testing.T, id int) *Session {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() { client.Close() })
	s := New(id, srv, 256)
	return s
}

func TestBindUsernameRejectsDuplicateCaseInsensitive(t *testing.T) {
	m := NewManager()
	a := newTestSession(t, m.NextID())
	b := newTestSession(t, m.NextID())
	m.Add(a)
	m.Add(b)

	if !m.BindUsername(a, "Alice") {
		t.Fatalf("expected first bind to succeed")
	}
	if m.BindUsername(b, "alice") {
		t.Fatalf("expected duplicate case-insensitive bind to fail")
	}
}

func TestRebindUpdatesLookup(t *testing.T) {
	m := NewManager()
	a := newTestSession(t, m.NextID())
	m.Add(a)
	m.BindUsername(a, "Alice")
	m.Rebind(a, "Alice", "Alicia")

	if _, ok := m.Lookup("alice"); ok {
		t.Fatalf("old name should no longer resolve")
	}
	got, ok := m.Lookup("alicia")
	if !ok || got.ID != a.ID {
		t.Fatalf("expected new name to resolve to same session")
	}
}

func TestRemoveIsIdempotentAndFreesName(t *testing.T) {
	m := NewManager()
	a := newTestSession(t, m.NextID())
	m.Add(a)
	m.BindUsername(a, "Alice")

	m.Remove(a)
	m.Remove(a) // second call must be a no-op, not a panic

	if m.IsNameTaken("alice") {
		t.Fatalf("expected name freed after removal")
	}
	if m.Count() != 0 {
		t.Fatalf("expected 0 sessions after removal, got %d", m.Count())
	}
}

func TestMarkDisconnectedOnlyTransitionsOnce(t *testing.T) {
	s := newTestSession(t, 1)
	if !s.MarkDisconnected() {
		t.Fatalf("expected first call to transition")
	}
	if s.MarkDisconnected() {
		t.Fatalf("expected second call to be a no-op")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newTestSession(t, 1)
	s.Close()
	s.Close() // must not panic
	if !s.IsClosed() {
		t.Fatalf("expected session to report closed")
	}
}

func TestSnapshotExcludesRemoved(t *testing.T) {
	m := NewManager()
	a := newTestSession(t, m.NextID())
	b := newTestSession(t, m.NextID())
	m.Add(a)
	m.Add(b)
	m.Remove(a)

	snap := m.Snapshot()
	if len(snap) != 1 || snap[0].ID != b.ID {
		t.Fatalf("expected only session b left, got %+v", snap)
	}
}
