// This file implements the SQLite-backed store for profiles and events.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists profiles and events in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a SQLite database at the DSN file path,
// creating the parent directory if needed.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewSQLiteStore: opening database", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("store.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("store.NewSQLiteStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("store.NewSQLiteStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("store.NewSQLiteStore: migrations failed", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("store.NewSQLiteStore: database ready", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// GetOrCreateProfile returns the stored profile, inserting a fresh row when absent.
func (s *SQLiteStore) GetOrCreateProfile(userID, displayName string) (*models.UserProfile, error) {
	now := time.Now()
	p := &models.UserProfile{
		UserID:       userID,
		NeedCounts:   make(map[string]int),
		IntentCounts: make(map[string]int),
	}
	err := s.db.QueryRow(`SELECT display_name, interactions, first_seen, last_seen FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.DisplayName, &p.Interactions, &p.FirstSeen, &p.LastSeen)
	if err == sql.ErrNoRows {
		p.DisplayName = displayName
		p.FirstSeen = now
		p.LastSeen = now
		if _, err := s.db.Exec(`INSERT INTO profiles (user_id, display_name, interactions, first_seen, last_seen) VALUES (?, ?, 0, ?, ?)`,
			userID, displayName, now, now); err != nil {
			slog.Error("SQLiteStore.GetOrCreateProfile: insert failed", "error", err, "userID", userID)
			return nil, fmt.Errorf("failed to insert profile for %s: %w", userID, err)
		}
		return p, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetOrCreateProfile: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}
	if displayName != "" && p.DisplayName == "" {
		p.DisplayName = displayName
		if _, err := s.db.Exec(`UPDATE profiles SET display_name = ? WHERE user_id = ?`, displayName, userID); err != nil {
			slog.Warn("SQLiteStore.GetOrCreateProfile: display name update failed", "error", err, "userID", userID)
		}
	}
	if err := s.loadCounts(userID, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) loadCounts(userID string, p *models.UserProfile) error {
	rows, err := s.db.Query(`SELECT kind, key, count FROM interaction_counts WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to query interaction counts for %s: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, key string
		var count int
		if err := rows.Scan(&kind, &key, &count); err != nil {
			return fmt.Errorf("failed to scan interaction count row: %w", err)
		}
		switch kind {
		case "need":
			p.NeedCounts[key] = count
		case "intent":
			p.IntentCounts[key] = count
		}
	}
	return rows.Err()
}

// RecordInteraction increments the user's counters inside a transaction.
func (s *SQLiteStore) RecordInteraction(userID string, need models.Need, intent string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`INSERT INTO profiles (user_id, display_name, interactions, first_seen, last_seen)
		VALUES (?, '', 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET interactions = interactions + 1, last_seen = excluded.last_seen`,
		userID, now, now); err != nil {
		return fmt.Errorf("failed to bump interactions for %s: %w", userID, err)
	}
	if need != models.NeedUnset {
		if err := s.bumpCount(tx, userID, "need", string(need)); err != nil {
			return err
		}
	}
	if intent != "" {
		if err := s.bumpCount(tx, userID, "intent", intent); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) bumpCount(tx *sql.Tx, userID, kind, key string) error {
	if _, err := tx.Exec(`INSERT INTO interaction_counts (user_id, kind, key, count) VALUES (?, ?, ?, 1)
		ON CONFLICT(user_id, kind, key) DO UPDATE SET count = count + 1`,
		userID, kind, key); err != nil {
		return fmt.Errorf("failed to bump %s count for %s: %w", kind, userID, err)
	}
	return nil
}

// AddEvent appends one event row.
func (s *SQLiteStore) AddEvent(e models.Event) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		meta = []byte("{}")
	}
	if _, err := s.db.Exec(`INSERT INTO events (time, direction, conversation_id, body, meta) VALUES (?, ?, ?, ?, ?)`,
		e.Time, string(e.Direction), e.ConversationID, e.Body, string(meta)); err != nil {
		slog.Error("SQLiteStore.AddEvent: insert failed", "error", err, "conversationID", e.ConversationID)
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Stats aggregates interaction counters across all users.
func (s *SQLiteStore) Stats() (models.InteractionStats, error) {
	stats := models.InteractionStats{
		ByNeed:   make(map[string]int),
		ByIntent: make(map[string]int),
	}
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(interactions), 0) FROM profiles`).Scan(&stats.TotalInteractions); err != nil {
		return stats, fmt.Errorf("failed to sum interactions: %w", err)
	}
	rows, err := s.db.Query(`SELECT kind, key, SUM(count) FROM interaction_counts GROUP BY kind, key`)
	if err != nil {
		return stats, fmt.Errorf("failed to query interaction counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, key string
		var count int
		if err := rows.Scan(&kind, &key, &count); err != nil {
			return stats, fmt.Errorf("failed to scan stats row: %w", err)
		}
		switch kind {
		case "need":
			stats.ByNeed[key] = count
		case "intent":
			stats.ByIntent[key] = count
		}
	}
	return stats, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }
