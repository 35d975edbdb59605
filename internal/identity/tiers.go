// internal/identity/tiers.go
package identity

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Tier is one storage layer for identifiers. The manager mirrors every
// identifier across all tiers and refreshes expiry on each read.
type Tier interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration) error
	Name() string
}

// MemoryTier is the volatile tier, the analog of the cookie jar: it
// lives only as long as the process.
type MemoryTier struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryTier creates an empty in-memory tier.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{entries: make(map[string]memoryEntry)}
}

func (t *MemoryTier) Name() string { return "memory" }

func (t *MemoryTier) Get(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(t.entries, key)
		return "", false
	}
	return e.value, true
}

func (t *MemoryTier) Set(key, value string, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// SQLiteTier is the durable tier backing identifier persistence across
// process restarts.
type SQLiteTier struct {
	db *sql.DB
}

// NewSQLiteTier opens (or creates) the identity database at path.
func NewSQLiteTier(path string) (*SQLiteTier, error) {
	if path == "" {
		return nil, fmt.Errorf("identity database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create identity directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open identity database: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS identifiers (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize identity schema: %w", err)
	}

	return &SQLiteTier{db: db}, nil
}

func (t *SQLiteTier) Name() string { return "sqlite" }

func (t *SQLiteTier) Get(key string) (string, bool) {
	var value string
	var expiresAt int64
	err := t.db.QueryRow(`SELECT value, expires_at FROM identifiers WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if err != nil {
		return "", false
	}
	if time.Now().Unix() > expiresAt {
		t.db.Exec(`DELETE FROM identifiers WHERE key = ?`, key)
		return "", false
	}
	return value, true
}

func (t *SQLiteTier) Set(key, value string, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Unix()
	_, err := t.db.Exec(
		`INSERT INTO identifiers (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to persist identifier %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (t *SQLiteTier) Close() error {
	return t.db.Close()
}
