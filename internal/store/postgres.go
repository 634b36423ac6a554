// This file implements the PostgreSQL-backed store for profiles and events.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/greenwayvn/welllabbot/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists profiles and events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens (and migrates) a PostgreSQL database from the DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewPostgresStore: opening database", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("store.NewPostgresStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("store.NewPostgresStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("store.NewPostgresStore: migrations failed", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("store.NewPostgresStore: database ready")
	return &PostgresStore{db: db}, nil
}

// GetOrCreateProfile returns the stored profile, inserting a fresh row when absent.
func (s *PostgresStore) GetOrCreateProfile(userID, displayName string) (*models.UserProfile, error) {
	now := time.Now()
	p := &models.UserProfile{
		UserID:       userID,
		NeedCounts:   make(map[string]int),
		IntentCounts: make(map[string]int),
	}
	err := s.db.QueryRow(`SELECT display_name, interactions, first_seen, last_seen FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.DisplayName, &p.Interactions, &p.FirstSeen, &p.LastSeen)
	if err == sql.ErrNoRows {
		p.DisplayName = displayName
		p.FirstSeen = now
		p.LastSeen = now
		if _, err := s.db.Exec(`INSERT INTO profiles (user_id, display_name, interactions, first_seen, last_seen) VALUES ($1, $2, 0, $3, $4)`,
			userID, displayName, now, now); err != nil {
			slog.Error("PostgresStore.GetOrCreateProfile: insert failed", "error", err, "userID", userID)
			return nil, fmt.Errorf("failed to insert profile for %s: %w", userID, err)
		}
		return p, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetOrCreateProfile: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}
	if displayName != "" && p.DisplayName == "" {
		p.DisplayName = displayName
		if _, err := s.db.Exec(`UPDATE profiles SET display_name = $1 WHERE user_id = $2`, displayName, userID); err != nil {
			slog.Warn("PostgresStore.GetOrCreateProfile: display name update failed", "error", err, "userID", userID)
		}
	}
	rows, err := s.db.Query(`SELECT kind, key, count FROM interaction_counts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction counts for %s: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, key string
		var count int
		if err := rows.Scan(&kind, &key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count row: %w", err)
		}
		switch kind {
		case "need":
			p.NeedCounts[key] = count
		case "intent":
			p.IntentCounts[key] = count
		}
	}
	return p, rows.Err()
}

// RecordInteraction increments the user's counters inside a transaction.
func (s *PostgresStore) RecordInteraction(userID string, need models.Need, intent string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`INSERT INTO profiles (user_id, display_name, interactions, first_seen, last_seen)
		VALUES ($1, '', 1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET interactions = profiles.interactions + 1, last_seen = EXCLUDED.last_seen`,
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

func (s *PostgresStore) bumpCount(tx *sql.Tx, userID, kind, key string) error {
	if _, err := tx.Exec(`INSERT INTO interaction_counts (user_id, kind, key, count) VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, kind, key) DO UPDATE SET count = interaction_counts.count + 1`,
		userID, kind, key); err != nil {
		return fmt.Errorf("failed to bump %s count for %s: %w", kind, userID, err)
	}
	return nil
}

// AddEvent appends one event row.
func (s *PostgresStore) AddEvent(e models.Event) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		meta = []byte("{}")
	}
	if _, err := s.db.Exec(`INSERT INTO events (time, direction, conversation_id, body, meta) VALUES ($1, $2, $3, $4, $5)`,
		e.Time, string(e.Direction), e.ConversationID, e.Body, string(meta)); err != nil {
		slog.Error("PostgresStore.AddEvent: insert failed", "error", err, "conversationID", e.ConversationID)
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Stats aggregates interaction counters across all users.
func (s *PostgresStore) Stats() (models.InteractionStats, error) {
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
func (s *PostgresStore) Close() error { return s.db.Close() }
