// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package seen records when occupants of a room were last seen.
package seen // import "mellium.im/jabberkit/cmd/mucbot/internal/seen"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Last if the nickname was never seen.
var ErrNotFound = errors.New("seen: nickname not found")

// Action is what the occupant was doing when they were seen.
type Action string

// A list of actions.
const (
	ActionJoin    Action = "join"
	ActionLeave   Action = "leave"
	ActionMessage Action = "message"
	ActionNick    Action = "nick"
)

// Sighting is the last recorded activity of a nickname in a room.
type Sighting struct {
	Room   string
	Nick   string
	JID    string
	Action Action
	Status string
	At     time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS sightings (
	room   TEXT NOT NULL,
	nick   TEXT NOT NULL,
	jid    TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	at     INTEGER NOT NULL,
	PRIMARY KEY (room, nick)
);
CREATE INDEX IF NOT EXISTS sightings_nick_at ON sightings (nick, at DESC);
`

// Store is a database of sightings.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and runs the migrations.
// Path may be a file name or a SQLite URI such as "file:x?mode=memory".
func Open(path string) (*Store, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_pragma=busy_timeout(5000)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return s, nil
}

func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("seen: error creating %s: %w", dir, err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("seen: migration failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores sight as the latest activity of its nickname in its room.
// If At is zero the current time is used.
func (s *Store) Record(ctx context.Context, sight Sighting) error {
	if sight.Room == "" || sight.Nick == "" {
		return errors.New("seen: room and nickname are required")
	}
	if sight.At.IsZero() {
		sight.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sightings (room, nick, jid, action, status, at) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (room, nick) DO UPDATE SET
	jid    = CASE WHEN excluded.jid = '' THEN sightings.jid ELSE excluded.jid END,
	action = excluded.action,
	status = excluded.status,
	at     = excluded.at`,
		sight.Room, sight.Nick, sight.JID, string(sight.Action), sight.Status, sight.At.UnixNano())
	return err
}

// Last returns the most recent sighting of nick in any room.
func (s *Store) Last(ctx context.Context, nick string) (Sighting, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT room, nick, jid, action, status, at FROM sightings
WHERE nick = ? ORDER BY at DESC LIMIT 1`, nick)
	var (
		sight  Sighting
		action string
		at     int64
	)
	err := row.Scan(&sight.Room, &sight.Nick, &sight.JID, &action, &sight.Status, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Sighting{}, ErrNotFound
	}
	if err != nil {
		return Sighting{}, err
	}
	sight.Action = Action(action)
	sight.At = time.Unix(0, at)
	return sight, nil
}

// Count returns the number of nicknames seen in room.
func (s *Store) Count(ctx context.Context, room string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings WHERE room = ?`, room).Scan(&n)
	return n, err
}
