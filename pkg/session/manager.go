package session

import "sync"

// Manager tracks every connected Session and is the sole owner of the
// connected-user set's lock, per the single-mutex requirement on
// membership checks, insertions, removals, and broadcast snapshots.
// Grounded on the teacher's ConnManager in pkg/server/descriptor.go.
type Manager struct {
	mu       sync.Mutex
	sessions map[int]*Session
	byName   map[string]*Session // keyed by case-folded username
	nextID   int
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int]*Session),
		byName:   make(map[string]*Session),
		nextID:   1,
	}
}

// NextID hands out a monotonically increasing session ID.
func (m *Manager) NextID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id
}

// Add registers a newly accepted session (pre-login; not yet named).
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Remove unregisters a session. Idempotent: removing an unknown ID is a
// no-op, matching the HandleDisconnect-on-unknown-session law.
func (m *Manager) Remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.ID)
	if name := s.Username(); name != "" {
		key := foldName(name)
		if cur, ok := m.byName[key]; ok && cur.ID == s.ID {
			delete(m.byName, key)
		}
	}
}

// BindUsername associates a session with its authenticated display name,
// enforcing the at-most-one-session-per-case-folded-username invariant.
// Returns false if another session already holds that name.
func (m *Manager) BindUsername(s *Session, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := foldName(name)
	if existing, ok := m.byName[key]; ok && existing.ID != s.ID {
		return false
	}
	m.byName[key] = s
	s.SetUsername(name)
	return true
}

// Rebind updates the username index entry after a successful rename.
func (m *Manager) Rebind(s *Session, oldName, newName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byName, foldName(oldName))
	m.byName[foldName(newName)] = s
	s.SetUsername(newName)
}

// Lookup finds a connected session by display name, case-insensitively.
func (m *Manager) Lookup(name string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byName[foldName(name)]
	return s, ok
}

// IsNameTaken reports whether a connected session already holds name,
// case-insensitively.
func (m *Manager) IsNameTaken(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byName[foldName(name)]
	return ok
}

// Snapshot returns every currently connected session. Used for broadcast
// fan-out and for !who — taken under the lock, then iterated lock-free so
// a slow Send never stalls membership changes.
func (m *Manager) Snapshot() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func foldName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
