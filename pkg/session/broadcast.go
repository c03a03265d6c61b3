package session

// SendToAll writes msg to every connected session except the ones listed in
// exclude. A send to a session whose transport has already failed is
// indistinguishable from a healthy one at this layer (Send swallows write
// errors) — the actual quarantine happens one level up, in the read loop
// that owns each session: once its ReadLine call observes the transport is
// gone, it marks the session disconnected and the reaper removes it here.
// This mirrors the teacher's ConnManager.SendToRoom/SendToPlayer: snapshot
// under the lock, then iterate and send lock-free.
func (m *Manager) SendToAll(msg string, exclude ...*Session) {
	excluded := make(map[int]bool, len(exclude))
	for _, s := range exclude {
		if s != nil {
			excluded[s.ID] = true
		}
	}
	for _, s := range m.Snapshot() {
		if excluded[s.ID] {
			continue
		}
		s.Send(msg)
	}
}

// SendToName delivers msg to the single session currently holding name
// (case-insensitively), reporting whether a recipient was found.
func (m *Manager) SendToName(name, msg string) bool {
	s, ok := m.Lookup(name)
	if !ok {
		return false
	}
	s.Send(msg)
	return true
}
