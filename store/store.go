// Package store provides SQLite persistence for portal-cli: the durable
// session and the record of imported feed items.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robertmeta/portal-cli/model"
	_ "modernc.org/sqlite"
)

// Keys used for the persisted session.
const (
	KeyToken     = "session.token"
	KeyTokenType = "session.token_type"
	KeyUser      = "session.user"
)

// ErrNotFound is returned when a key is absent.
var ErrNotFound = errors.New("key not found")

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each new connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}

	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS imported_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_url TEXT NOT NULL,
		guid TEXT NOT NULL,
		content_id TEXT NOT NULL,
		imported_at INTEGER NOT NULL,
		UNIQUE(feed_url, guid)
	);

	CREATE INDEX IF NOT EXISTS idx_imported_items_feed_url ON imported_items(feed_url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// SaveSession persists the token and, when present, a snapshot of the
// current user, in one transaction.
func (s *Store) SaveSession(sess model.Session) error {
	if sess.Token == "" {
		return errors.New("session token is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	put := func(key, value string) error {
		_, err := tx.Exec(
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		)
		return err
	}

	if err := put(KeyToken, sess.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := put(KeyTokenType, sess.TokenType); err != nil {
		return fmt.Errorf("failed to save token type: %w", err)
	}

	if sess.CurrentUser != nil {
		data, err := json.Marshal(sess.CurrentUser)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		if err := put(KeyUser, string(data)); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
	} else if _, err := tx.Exec("DELETE FROM settings WHERE key = ?", KeyUser); err != nil {
		return fmt.Errorf("failed to clear user: %w", err)
	}

	return tx.Commit()
}

// LoadSession returns the persisted session, or nil when no token is
// stored. A corrupt user snapshot is dropped rather than failing the load.
func (s *Store) LoadSession() (*model.Session, error) {
	token, err := s.Get(KeyToken)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess := &model.Session{Token: token, TokenType: model.DefaultTokenType}
	if tt, err := s.Get(KeyTokenType); err == nil && tt != "" {
		sess.TokenType = tt
	}

	if raw, err := s.Get(KeyUser); err == nil {
		var u model.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			sess.CurrentUser = &u
		}
	}

	return sess, nil
}

// ClearSession removes every persisted session key.
func (s *Store) ClearSession() error {
	return s.Delete(KeyToken, KeyTokenType, KeyUser)
}

// ImportedItem records a feed entry that was turned into content.
type ImportedItem struct {
	FeedURL    string    `json:"feed_url"`
	GUID       string    `json:"guid"`
	ContentID  string    `json:"content_id"`
	ImportedAt time.Time `json:"imported_at"`
}

// IsImported reports whether guid from feedURL was already imported.
func (s *Store) IsImported(feedURL, guid string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM imported_items WHERE feed_url = ? AND guid = ?",
		feedURL, guid,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check import: %w", err)
	}
	return n > 0, nil
}

// MarkImported records that guid from feedURL became content contentID.
func (s *Store) MarkImported(feedURL, guid, contentID string) error {
	_, err := s.db.Exec(
		"INSERT INTO imported_items (feed_url, guid, content_id, imported_at) VALUES (?, ?, ?, ?)",
		feedURL, guid, contentID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}
	return nil
}

// ImportedItems lists what was imported from feedURL, newest first.
// An empty feedURL lists everything.
func (s *Store) ImportedItems(feedURL string) ([]ImportedItem, error) {
	query := "SELECT feed_url, guid, content_id, imported_at FROM imported_items"
	args := []interface{}{}
	if feedURL != "" {
		query += " WHERE feed_url = ?"
		args = append(args, feedURL)
	}
	query += " ORDER BY imported_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer rows.Close()

	var items []ImportedItem
	for rows.Next() {
		var it ImportedItem
		var at int64
		if err := rows.Scan(&it.FeedURL, &it.GUID, &it.ContentID, &at); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		it.ImportedAt = time.Unix(at, 0)
		items = append(items, it)
	}

	return items, rows.Err()
}
