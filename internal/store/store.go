// Package store provides storage backends for user profiles and the
// append-only event log.
//
// The dialogue engine treats both as fire-and-forget telemetry: profiles are
// consulted only for display-name population, and events are never read back.
// Backends: in-memory (default), SQLite, and PostgreSQL.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// Store is the profile-store and event-logger contract.
type Store interface {
	// GetOrCreateProfile returns the persisted profile for userID, creating
	// one with the given display name when none exists.
	GetOrCreateProfile(userID, displayName string) (*models.UserProfile, error)

	// RecordInteraction increments the interaction counters for userID.
	// Empty need/intent values are not counted.
	RecordInteraction(userID string, need models.Need, intent string) error

	// AddEvent appends one event to the log.
	AddEvent(e models.Event) error

	// Stats aggregates recorded interactions across all users.
	Stats() (models.InteractionStats, error)

	// Close releases any backing resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the backing database.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the backing database.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore keeps profiles and events in process memory. It is the
// default backend and the one used in tests.
type InMemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	events   []models.Event
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]*models.UserProfile)}
}

// GetOrCreateProfile returns the stored profile, creating it when absent.
func (s *InMemoryStore) GetOrCreateProfile(userID, displayName string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		if displayName != "" && p.DisplayName == "" {
			p.DisplayName = displayName
		}
		p.LastSeen = time.Now()
		return p, nil
	}
	now := time.Now()
	p := &models.UserProfile{
		UserID:       userID,
		DisplayName:  displayName,
		NeedCounts:   make(map[string]int),
		IntentCounts: make(map[string]int),
		FirstSeen:    now,
		LastSeen:     now,
	}
	s.profiles[userID] = p
	return p, nil
}

// RecordInteraction increments the per-user counters.
func (s *InMemoryStore) RecordInteraction(userID string, need models.Need, intent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		now := time.Now()
		p = &models.UserProfile{
			UserID:       userID,
			NeedCounts:   make(map[string]int),
			IntentCounts: make(map[string]int),
			FirstSeen:    now,
			LastSeen:     now,
		}
		s.profiles[userID] = p
	}
	p.Interactions++
	p.LastSeen = time.Now()
	if need != models.NeedUnset {
		p.NeedCounts[string(need)]++
	}
	if intent != "" {
		p.IntentCounts[intent]++
	}
	return nil
}

// AddEvent appends an event to the in-memory log.
func (s *InMemoryStore) AddEvent(e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of the logged events, for tests.
func (s *InMemoryStore) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Stats aggregates interaction counters across all profiles.
func (s *InMemoryStore) Stats() (models.InteractionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := models.InteractionStats{
		ByNeed:   make(map[string]int),
		ByIntent: make(map[string]int),
	}
	for _, p := range s.profiles {
		stats.TotalInteractions += p.Interactions
		for k, v := range p.NeedCounts {
			stats.ByNeed[k] += v
		}
		for k, v := range p.IntentCounts {
			stats.ByIntent[k] += v
		}
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
