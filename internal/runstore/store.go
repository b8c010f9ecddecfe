// Package runstore persists probe run history in a local SQLite database.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// Store manages SQLite persistence for probe runs
type Store struct {
	db *sql.DB
}

// New creates a Store with the database at ~/.leakprobe/history.db.
// The directory and database file are created if they don't exist.
func New() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".leakprobe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .leakprobe directory: %w", err)
	}

	return NewWithPath(filepath.Join(dir, "history.db"))
}

// NewWithPath creates a Store with a custom database path.
// This is useful for testing.
func NewWithPath(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the runs table if it doesn't exist
func (s *Store) migrate() error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			prompt TEXT NOT NULL,
			conversation_files TEXT NOT NULL,
			response TEXT NOT NULL,
			error_type TEXT NOT NULL DEFAULT '',
			score REAL,
			confidence REAL,
			report_path TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
	`
	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	createIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_runs_created_at
		ON runs(created_at DESC);
	`
	if _, err := s.db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// SaveRun stores a run record. A missing ID and timestamp are filled in;
// the generated ID is returned.
func (s *Store) SaveRun(ctx context.Context, record *RunRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("run record cannot be nil")
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	filesJSON, err := json.Marshal(record.ConversationFiles)
	if err != nil {
		return "", fmt.Errorf("failed to encode conversation file list: %w", err)
	}

	insertSQL := `
		INSERT INTO runs (id, model, prompt, conversation_files, response, error_type, score, confidence, report_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, insertSQL,
		record.ID,
		record.Model,
		record.Prompt,
		string(filesJSON),
		record.Response,
		record.ErrorType,
		record.Score,
		record.Confidence,
		record.ReportPath,
		record.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	return record.ID, nil
}

// GetRun retrieves a run by ID, nil when not found
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `
		SELECT id, model, prompt, conversation_files, response, error_type, score, confidence, report_path, created_at
		FROM runs
		WHERE id = ?
	`
	record, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return record, nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, model, prompt, conversation_files, response, error_type, score, confidence, report_path, created_at
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return records, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var record RunRecord
	var filesJSON string
	var createdAt string

	err := row.Scan(
		&record.ID,
		&record.Model,
		&record.Prompt,
		&filesJSON,
		&record.Response,
		&record.ErrorType,
		&record.Score,
		&record.Confidence,
		&record.ReportPath,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(filesJSON), &record.ConversationFiles); err != nil {
		return nil, fmt.Errorf("failed to decode conversation file list: %w", err)
	}

	record.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		// SQLite may hand back RFC3339 depending on how the value was bound
		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
		}
	}

	return &record, nil
}
