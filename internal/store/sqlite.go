// Package store provides session storage backends for CampoBot.
//
// This file implements the SQLite-backed store.
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

	"github.com/campo-inteligente/campobot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// LoadContext returns the stored session document or an empty Context when
// the key has never been seen.
func (s *SQLiteStore) LoadContext(userID string) (models.Context, error) {
	var document string
	err := s.db.QueryRow(`SELECT document FROM contexts WHERE user_id = ?`, userID).Scan(&document)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LoadContext not found, returning empty", "userID", userID)
		return models.NewContext(userID), nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadContext failed", "error", err, "userID", userID)
		return models.Context{}, fmt.Errorf("failed to load context for %s: %w", userID, err)
	}

	var sessionCtx models.Context
	if err := json.Unmarshal([]byte(document), &sessionCtx); err != nil {
		slog.Error("SQLiteStore LoadContext JSON unmarshal failed", "error", err, "userID", userID)
		return models.Context{}, fmt.Errorf("failed to decode context for %s: %w", userID, err)
	}
	sessionCtx.UserID = userID
	slog.Debug("SQLiteStore LoadContext succeeded", "userID", userID, "flow", sessionCtx.Flow.Type)
	return sessionCtx, nil
}

// SaveContext upserts the session document for sessionCtx.UserID.
func (s *SQLiteStore) SaveContext(sessionCtx models.Context) error {
	document, err := json.Marshal(sessionCtx)
	if err != nil {
		slog.Error("SQLiteStore SaveContext JSON marshal failed", "error", err, "userID", sessionCtx.UserID)
		return fmt.Errorf("failed to encode context for %s: %w", sessionCtx.UserID, err)
	}

	query := `
		INSERT OR REPLACE INTO contexts (user_id, document, daily, updated_at)
		VALUES (?, ?, ?, ?)`
	_, err = s.db.Exec(query, sessionCtx.UserID, string(document), sessionCtx.DailyForecast, time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveContext failed", "error", err, "userID", sessionCtx.UserID)
		return fmt.Errorf("failed to save context for %s: %w", sessionCtx.UserID, err)
	}
	slog.Debug("SQLiteStore SaveContext succeeded", "userID", sessionCtx.UserID, "flow", sessionCtx.Flow.Type)
	return nil
}

// DeleteContext removes the session document for the user.
func (s *SQLiteStore) DeleteContext(userID string) error {
	_, err := s.db.Exec(`DELETE FROM contexts WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore DeleteContext failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete context for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore DeleteContext succeeded", "userID", userID)
	return nil
}

// LogMessage appends one inbound message to the message log.
func (s *SQLiteStore) LogMessage(msg models.IncomingMessage) error {
	_, err := s.db.Exec(`INSERT INTO message_log (user_id, body, received_at) VALUES (?, ?, ?)`,
		msg.From, msg.Text, msg.Time.Unix())
	if err != nil {
		slog.Error("SQLiteStore LogMessage failed", "error", err, "from", msg.From)
		return fmt.Errorf("failed to insert message from %s: %w", msg.From, err)
	}
	slog.Debug("SQLiteStore LogMessage succeeded", "from", msg.From)
	return nil
}

// RecentMessages returns up to limit messages for the user, newest last.
func (s *SQLiteStore) RecentMessages(userID string, limit int) ([]models.IncomingMessage, error) {
	rows, err := s.db.Query(`
		SELECT user_id, body, received_at FROM message_log
		WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		slog.Error("SQLiteStore RecentMessages query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query messages for %s: %w", userID, err)
	}
	defer rows.Close()

	var messages []models.IncomingMessage
	for rows.Next() {
		var m models.IncomingMessage
		var receivedAt int64
		if err := rows.Scan(&m.From, &m.Text, &receivedAt); err != nil {
			slog.Error("SQLiteStore RecentMessages scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Time = time.Unix(receivedAt, 0)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore RecentMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	slog.Debug("SQLiteStore RecentMessages succeeded", "userID", userID, "count", len(messages))
	return messages, nil
}

// ListDailySubscribers returns sessions subscribed to the daily bulletin.
func (s *SQLiteStore) ListDailySubscribers() ([]models.Context, error) {
	rows, err := s.db.Query(`SELECT document FROM contexts WHERE daily = 1`)
	if err != nil {
		slog.Error("SQLiteStore ListDailySubscribers query failed", "error", err)
		return nil, fmt.Errorf("failed to query daily subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []models.Context
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			slog.Error("SQLiteStore ListDailySubscribers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan context row: %w", err)
		}
		var sessionCtx models.Context
		if err := json.Unmarshal([]byte(document), &sessionCtx); err != nil {
			slog.Error("SQLiteStore ListDailySubscribers JSON unmarshal failed", "error", err)
			return nil, fmt.Errorf("failed to decode context document: %w", err)
		}
		subscribers = append(subscribers, sessionCtx)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListDailySubscribers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate context rows: %w", err)
	}
	slog.Debug("SQLiteStore ListDailySubscribers succeeded", "count", len(subscribers))
	return subscribers, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
