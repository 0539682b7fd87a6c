// Package store provides session storage backends for CampoBot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/campo-inteligente/campobot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// LoadContext returns the stored session document or an empty Context when
// the key has never been seen.
func (s *PostgresStore) LoadContext(userID string) (models.Context, error) {
	var document string
	err := s.db.QueryRow(`SELECT document FROM contexts WHERE user_id = $1`, userID).Scan(&document)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore LoadContext not found, returning empty", "userID", userID)
		return models.NewContext(userID), nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadContext failed", "error", err, "userID", userID)
		return models.Context{}, fmt.Errorf("failed to load context for %s: %w", userID, err)
	}

	var sessionCtx models.Context
	if err := json.Unmarshal([]byte(document), &sessionCtx); err != nil {
		slog.Error("PostgresStore LoadContext JSON unmarshal failed", "error", err, "userID", userID)
		return models.Context{}, fmt.Errorf("failed to decode context for %s: %w", userID, err)
	}
	sessionCtx.UserID = userID
	slog.Debug("PostgresStore LoadContext succeeded", "userID", userID, "flow", sessionCtx.Flow.Type)
	return sessionCtx, nil
}

// SaveContext upserts the session document for sessionCtx.UserID.
func (s *PostgresStore) SaveContext(sessionCtx models.Context) error {
	document, err := json.Marshal(sessionCtx)
	if err != nil {
		slog.Error("PostgresStore SaveContext JSON marshal failed", "error", err, "userID", sessionCtx.UserID)
		return fmt.Errorf("failed to encode context for %s: %w", sessionCtx.UserID, err)
	}

	query := `
		INSERT INTO contexts (user_id, document, daily, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			document = EXCLUDED.document,
			daily = EXCLUDED.daily,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query, sessionCtx.UserID, string(document), sessionCtx.DailyForecast, time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveContext failed", "error", err, "userID", sessionCtx.UserID)
		return fmt.Errorf("failed to save context for %s: %w", sessionCtx.UserID, err)
	}
	slog.Debug("PostgresStore SaveContext succeeded", "userID", sessionCtx.UserID, "flow", sessionCtx.Flow.Type)
	return nil
}

// DeleteContext removes the session document for the user.
func (s *PostgresStore) DeleteContext(userID string) error {
	_, err := s.db.Exec(`DELETE FROM contexts WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore DeleteContext failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete context for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore DeleteContext succeeded", "userID", userID)
	return nil
}

// LogMessage appends one inbound message to the message log.
func (s *PostgresStore) LogMessage(msg models.IncomingMessage) error {
	_, err := s.db.Exec(`INSERT INTO message_log (user_id, body, received_at) VALUES ($1, $2, $3)`,
		msg.From, msg.Text, msg.Time.Unix())
	if err != nil {
		slog.Error("PostgresStore LogMessage failed", "error", err, "from", msg.From)
		return fmt.Errorf("failed to insert message from %s: %w", msg.From, err)
	}
	slog.Debug("PostgresStore LogMessage succeeded", "from", msg.From)
	return nil
}

// RecentMessages returns up to limit messages for the user, newest last.
func (s *PostgresStore) RecentMessages(userID string, limit int) ([]models.IncomingMessage, error) {
	rows, err := s.db.Query(`
		SELECT user_id, body, received_at FROM message_log
		WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		slog.Error("PostgresStore RecentMessages query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query messages for %s: %w", userID, err)
	}
	defer rows.Close()

	var messages []models.IncomingMessage
	for rows.Next() {
		var m models.IncomingMessage
		var receivedAt int64
		if err := rows.Scan(&m.From, &m.Text, &receivedAt); err != nil {
			slog.Error("PostgresStore RecentMessages scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Time = time.Unix(receivedAt, 0)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore RecentMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	slog.Debug("PostgresStore RecentMessages succeeded", "userID", userID, "count", len(messages))
	return messages, nil
}

// ListDailySubscribers returns sessions subscribed to the daily bulletin.
func (s *PostgresStore) ListDailySubscribers() ([]models.Context, error) {
	rows, err := s.db.Query(`SELECT document FROM contexts WHERE daily = TRUE`)
	if err != nil {
		slog.Error("PostgresStore ListDailySubscribers query failed", "error", err)
		return nil, fmt.Errorf("failed to query daily subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []models.Context
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			slog.Error("PostgresStore ListDailySubscribers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan context row: %w", err)
		}
		var sessionCtx models.Context
		if err := json.Unmarshal([]byte(document), &sessionCtx); err != nil {
			slog.Error("PostgresStore ListDailySubscribers JSON unmarshal failed", "error", err)
			return nil, fmt.Errorf("failed to decode context document: %w", err)
		}
		subscribers = append(subscribers, sessionCtx)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListDailySubscribers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate context rows: %w", err)
	}
	slog.Debug("PostgresStore ListDailySubscribers succeeded", "count", len(subscribers))
	return subscribers, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
