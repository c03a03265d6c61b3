// Package credstore persists user credentials and Tic-Tac-Toe win/loss/draw
// counters in a SQLite database, reached through database/sql and the
// pure-Go modernc.org/sqlite driver — the same driver the teacher project
// uses for its optional softcode SQL access (pkg/server/sqldb.go), here
// promoted to the system of record for user accounts rather than an
// optional side-feature.
package credstore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"golang.org/x/crypto/bcrypt"
)

// Stats holds a player's win/loss/draw counters.
type Stats struct {
	Wins, Losses, Draws int
}

// ScoreRow is one leaderboard entry.
type ScoreRow struct {
	Username string
	Stats
}

// Store is a synchronous, atomic-per-call credential and score store.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates the backing SQLite file (if missing) and ensures the Users
// table exists. Username comparisons are case-insensitive (COLLATE NOCASE)
// but the row preserves whatever casing was registered.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrStoreUnavailable, path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: WAL mode: %v", ErrStoreUnavailable, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: busy timeout: %v", ErrStoreUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	const schema = `
CREATE TABLE IF NOT EXISTS Users (
	ID INTEGER PRIMARY KEY AUTOINCREMENT,
	Username TEXT NOT NULL COLLATE NOCASE,
	Password TEXT NOT NULL,
	Wins INTEGER NOT NULL DEFAULT 0,
	Losses INTEGER NOT NULL DEFAULT 0,
	Draws INTEGER NOT NULL DEFAULT 0,
	CreatedAt INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_nocase ON Users(Username COLLATE NOCASE);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: creating schema: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TestConnection reports whether the store can currently serve a query.
func (s *Store) TestConnection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return false
	}
	return s.db.Ping() == nil
}

// TryRegister inserts exactly one row. Uniqueness is case-insensitive but
// the provided display casing is preserved verbatim.
func (s *Store) TryRegister(user, pass string) error {
	if ok, _ := ValidateUsername(user); !ok {
		return ErrInvalidUsername
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%w: hashing password: %v", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err = s.db.QueryRow(`SELECT 1 FROM Users WHERE Username = ? COLLATE NOCASE`, user).Scan(&exists)
	if err == nil {
		return ErrUsernameTaken
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("%w: checking username: %v", ErrStoreUnavailable, err)
	}

	_, err = s.db.Exec(`INSERT INTO Users (Username, Password, CreatedAt) VALUES (?, ?, ?)`,
		user, string(hash), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: inserting user: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// TryLogin looks the user up case-insensitively and verifies the password.
// On success it returns the display name stored at registration time, which
// the caller must use for the rest of the session.
func (s *Store) TryLogin(user, pass string) (displayName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored, hash string
	err = s.db.QueryRow(`SELECT Username, Password FROM Users WHERE Username = ? COLLATE NOCASE`, user).
		Scan(&stored, &hash)
	if err == sql.ErrNoRows {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: lookup: %v", ErrStoreUnavailable, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) != nil {
		return "", ErrWrongPassword
	}
	return stored, nil
}

// TryUpdateUsername renames a user, preserving the new display casing.
func (s *Store) TryUpdateUsername(oldDisplay, newName string) error {
	if ok, _ := ValidateUsername(newName); !ok {
		return ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM Users WHERE Username = ? COLLATE NOCASE`, newName).Scan(&exists)
	if err == nil {
		return ErrUsernameTaken
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("%w: checking new username: %v", ErrStoreUnavailable, err)
	}

	res, err := s.db.Exec(`UPDATE Users SET Username = ? WHERE Username = ? COLLATE NOCASE`, newName, oldDisplay)
	if err != nil {
		return fmt.Errorf("%w: renaming: %v", ErrStoreUnavailable, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// IncrementWins adds one to a user's win counter.
func (s *Store) IncrementWins(user string) error { return s.bump(user, "Wins") }

// IncrementLosses adds one to a user's loss counter.
func (s *Store) IncrementLosses(user string) error { return s.bump(user, "Losses") }

// IncrementDraws adds one to a user's draw counter.
func (s *Store) IncrementDraws(user string) error { return s.bump(user, "Draws") }

func (s *Store) bump(user, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	query := fmt.Sprintf(`UPDATE Users SET %s = %s + 1 WHERE Username = ? COLLATE NOCASE`, column, column)
	res, err := s.db.Exec(query, user)
	if err != nil {
		return fmt.Errorf("%w: incrementing %s: %v", ErrStoreUnavailable, column, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetStats returns a user's win/loss/draw counters.
func (s *Store) GetStats(user string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	err := s.db.QueryRow(`SELECT Wins, Losses, Draws FROM Users WHERE Username = ? COLLATE NOCASE`, user).
		Scan(&st.Wins, &st.Losses, &st.Draws)
	if err == sql.ErrNoRows {
		return Stats{}, ErrUserNotFound
	}
	if err != nil {
		return Stats{}, fmt.Errorf("%w: reading stats: %v", ErrStoreUnavailable, err)
	}
	return st, nil
}

// GetAllScores returns every user sorted by wins desc, draws desc, ties
// broken by insertion order (ID ascending).
func (s *Store) GetAllScores() ([]ScoreRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT Username, Wins, Losses, Draws FROM Users ORDER BY Wins DESC, Draws DESC, ID ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying scores: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.Username, &r.Wins, &r.Losses, &r.Draws); err != nil {
			return nil, fmt.Errorf("%w: scanning score row: %v", ErrStoreUnavailable, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
