// Package storage provides local persistence and in-memory session
// state. The SQLite cache keeps each profile's progress document on
// disk so the store is local-first: it survives restarts and works
// without any remote.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	profile_id    TEXT PRIMARY KEY,
	doc           TEXT NOT NULL,
	updated_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bindings (
	user_id    INTEGER PRIMARY KEY,
	profile_id TEXT NOT NULL
);
`

// LocalCache is a SQLite-backed cache of progress documents and
// user-to-profile bindings.
type LocalCache struct {
	db *sqlx.DB
}

// NewLocalCache opens (creating if needed) the SQLite database at path.
func NewLocalCache(path string) (*LocalCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &LocalCache{db: db}, nil
}

// Close closes the underlying database.
func (c *LocalCache) Close() error {
	return c.db.Close()
}

// LoadDocument reads the cached document for a profile. Returns
// ErrNotFound when the profile has never been cached.
func (c *LocalCache) LoadDocument(profileID string) (*entities.ProgressDocument, error) {
	var raw string
	err := c.db.Get(&raw, `SELECT doc FROM profiles WHERE profile_id = ?`, profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}

	var doc entities.ProgressDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

// SaveDocument writes the full document for a profile.
func (c *LocalCache) SaveDocument(profileID string, doc *entities.ProgressDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	query := `
		INSERT INTO profiles (profile_id, doc, updated_at_ms)
		VALUES (?, ?, ?)
		ON CONFLICT (profile_id)
		DO UPDATE SET doc = excluded.doc, updated_at_ms = excluded.updated_at_ms
	`

	if _, err := c.db.Exec(query, profileID, string(raw), doc.Timestamp); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Binding returns the profile id bound to a Telegram user. Returns
// ErrNotFound when the user has no stored binding yet.
func (c *LocalCache) Binding(userID int64) (string, error) {
	var profileID string
	err := c.db.Get(&profileID, `SELECT profile_id FROM bindings WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("load binding: %w", err)
	}
	return profileID, nil
}

// SetBinding stores the profile id for a Telegram user.
func (c *LocalCache) SetBinding(userID int64, profileID string) error {
	query := `
		INSERT INTO bindings (user_id, profile_id)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET profile_id = excluded.profile_id
	`

	if _, err := c.db.Exec(query, userID, profileID); err != nil {
		return fmt.Errorf("save binding: %w", err)
	}
	return nil
}
