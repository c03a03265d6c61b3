// Package matchstore persists the single shared match's slot assignments in
// an embedded bbolt key/value database — the same library and
// open/bucket-ensure pattern the teacher project uses for its world
// database (pkg/boltstore/store.go), scaled down to the three well-known
// keys this system actually needs.
package matchstore

import (
	"fmt"

	bbolt "go.etcd.io/bbolt"
)

var bucketMatch = []byte("match")

var (
	keyPlayer1    = []byte("Player1")
	keyPlayer2    = []byte("Player2")
	keyCurrentTurn = []byte("CurrentTurn")
)

// Store wraps a bbolt database holding the match's three keys.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures the match bucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("matchstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMatch)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("matchstore: create bucket: %w", err)
	}
	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt == nil {
		return nil
	}
	return s.bolt.Close()
}

// Snapshot is the full persisted state of the match.
type Snapshot struct {
	Player1     string // "" means unset
	Player2     string
	CurrentTurn string
}

// Load reads the three keys back. A missing key reads back as "".
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMatch)
		snap.Player1 = string(b.Get(keyPlayer1))
		snap.Player2 = string(b.Get(keyPlayer2))
		snap.CurrentTurn = string(b.Get(keyCurrentTurn))
		return nil
	})
	return snap, err
}

// SetPlayer1 upserts the Player1 key. An empty string clears it.
func (s *Store) SetPlayer1(name string) error { return s.put(keyPlayer1, name) }

// SetPlayer2 upserts the Player2 key. An empty string clears it.
func (s *Store) SetPlayer2(name string) error { return s.put(keyPlayer2, name) }

// SetCurrentTurn upserts the CurrentTurn key. An empty string clears it.
func (s *Store) SetCurrentTurn(name string) error { return s.put(keyCurrentTurn, name) }

func (s *Store) put(key []byte, value string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMatch)
		if value == "" {
			return b.Delete(key)
		}
		return b.Put(key, []byte(value))
	})
}

// Clear resets all three keys to unset — used by dropout recovery and after
// a terminal game state.
func (s *Store) Clear() error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMatch)
		for _, k := range [][]byte{keyPlayer1, keyPlayer2, keyCurrentTurn} {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
