// cmd/collector/store.go
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// storedEvent is one accepted track request.
type storedEvent struct {
	APIKey     string          `json:"apiKey"`
	EventName  string          `json:"eventName"`
	Properties json.RawMessage `json:"properties"`
	SessionID  string          `json:"sessionId"`
	Timestamp  time.Time       `json:"timestamp"`
	PixelID    string          `json:"pixel_id,omitempty"`
	EventID    string          `json:"event_id,omitempty"`
}

// eventStore persists accepted events. The collector treats storage as
// append-only; querying lives elsewhere.
type eventStore interface {
	Insert(ev storedEvent) error
	Close() error
}

// sqlStore works for both SQLite and Postgres; only the placeholder
// style differs.
type sqlStore struct {
	db       *sql.DB
	postgres bool
}

func openStore(databaseURL, sqlitePath string) (eventStore, error) {
	if databaseURL != "" {
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		store := &sqlStore{db: db, postgres: true}
		return store, store.migrate()
	}

	db, err := sql.Open("sqlite3", sqlitePath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &sqlStore{db: db}
	return store, store.migrate()
}

func (s *sqlStore) migrate() error {
	schema := `CREATE TABLE IF NOT EXISTS events (
		id          %s,
		api_key     TEXT NOT NULL,
		event_name  TEXT NOT NULL,
		properties  TEXT NOT NULL,
		session_id  TEXT NOT NULL,
		event_time  TIMESTAMP NOT NULL,
		pixel_id    TEXT,
		event_id    TEXT,
		received_at TIMESTAMP NOT NULL
	)`
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.postgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}
	_, err := s.db.Exec(fmt.Sprintf(schema, idColumn))
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

func (s *sqlStore) Insert(ev storedEvent) error {
	query := `INSERT INTO events
		(api_key, event_name, properties, session_id, event_time, pixel_id, event_id, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if s.postgres {
		query = `INSERT INTO events
		(api_key, event_name, properties, session_id, event_time, pixel_id, event_id, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	}
	_, err := s.db.Exec(query,
		ev.APIKey, ev.EventName, string(ev.Properties), ev.SessionID,
		ev.Timestamp, ev.PixelID, ev.EventID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
