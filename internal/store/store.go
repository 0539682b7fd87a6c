// Package store provides session storage backends for CampoBot.
//
// A store keeps one Context document per user identifier with upsert-on-write
// semantics, plus an append-only log of inbound messages. Backends exist for
// SQLite, PostgreSQL and (for tests) memory.
package store

import (
	"strings"
	"sync"

	"github.com/campo-inteligente/campobot/internal/models"
)

// DetectDSNType reports "postgres" for connection URLs and "sqlite" for
// everything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Store is the persistence contract consumed by the dialogue engine.
//
// LoadContext never fails on "not found": a fresh empty Context for the key
// is returned instead. Calls for different user identifiers are safe to run
// concurrently; turns for the same identifier must be serialized by the
// caller.
type Store interface {
	// LoadContext returns the session for the user, or an empty one.
	LoadContext(userID string) (models.Context, error)
	// SaveContext upserts the session document for sessionCtx.UserID.
	SaveContext(sessionCtx models.Context) error
	// DeleteContext removes the session document for the user.
	DeleteContext(userID string) error

	// LogMessage appends one inbound message to the message log.
	LogMessage(msg models.IncomingMessage) error
	// RecentMessages returns up to limit messages for the user, newest last.
	RecentMessages(userID string, limit int) ([]models.IncomingMessage, error)

	// ListDailySubscribers returns every session subscribed to the daily
	// weather bulletin, used to rebuild schedules after a restart.
	ListDailySubscribers() ([]models.Context, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the backend connection string: a file path for SQLite, a
	// connection URL for Postgres.
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithDSN sets the backend connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// InMemoryStore is a map-backed store used in tests and development.
type InMemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]models.Context
	messages []models.IncomingMessage
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{contexts: make(map[string]models.Context)}
}

// LoadContext returns the stored session or an empty one for the key.
func (s *InMemoryStore) LoadContext(userID string) (models.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sessionCtx, ok := s.contexts[userID]; ok {
		return sessionCtx, nil
	}
	return models.NewContext(userID), nil
}

// SaveContext upserts the session document.
func (s *InMemoryStore) SaveContext(sessionCtx models.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[sessionCtx.UserID] = sessionCtx
	return nil
}

// DeleteContext removes the session document.
func (s *InMemoryStore) DeleteContext(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, userID)
	return nil
}

// LogMessage appends one inbound message to the log.
func (s *InMemoryStore) LogMessage(msg models.IncomingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// RecentMessages returns up to limit messages for the user, newest last.
func (s *InMemoryStore) RecentMessages(userID string, limit int) ([]models.IncomingMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.IncomingMessage
	for _, m := range s.messages {
		if m.From == userID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ListDailySubscribers returns every session with an active daily bulletin.
func (s *InMemoryStore) ListDailySubscribers() ([]models.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Context
	for _, sessionCtx := range s.contexts {
		if sessionCtx.DailyForecast {
			out = append(out, sessionCtx)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
