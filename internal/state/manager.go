// Package state records the history of synchronization passes in SQLite.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PassStatus is the outcome of a pass
type PassStatus string

const (
	StatusSuccess PassStatus = "success"
	StatusFailed  PassStatus = "failed"
)

// IsValid checks if the status is known
func (s PassStatus) IsValid() bool {
	return s == StatusSuccess || s == StatusFailed
}

// PassRecord represents a single synchronization pass
type PassRecord struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Status    PassStatus
	Linked    int
	Skipped   int
	Cached    int
	PathMaps  int
	Error     string
}

// Duration returns how long the pass ran
func (r PassRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Manager handles pass history persistence
type Manager struct {
	db *sql.DB
}

// NewManager opens (creating if needed) the history database at dbPath
func NewManager(dbPath string) (*Manager, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps sqlite from reporting "database is locked"
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id TEXT PRIMARY KEY,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		linked INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		cached INTEGER DEFAULT 0,
		path_maps INTEGER DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_passes_time ON passes(start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_passes_status ON passes(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SavePass records a finished pass
func (m *Manager) SavePass(record PassRecord) error {
	if record.ID == "" {
		return fmt.Errorf("pass record has no id")
	}
	if !record.Status.IsValid() {
		return fmt.Errorf("invalid status: %s (must be 'success' or 'failed')", record.Status)
	}

	query := `
		INSERT INTO passes (id, start_time, end_time, status, linked, skipped, cached, path_maps, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		record.ID,
		record.StartTime.UTC(),
		record.EndTime.UTC(),
		string(record.Status),
		record.Linked,
		record.Skipped,
		record.Cached,
		record.PathMaps,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save pass record: %w", err)
	}

	return nil
}

const selectPasses = `
	SELECT id, start_time, end_time, status, linked, skipped, cached, path_maps, error
	FROM passes
`

// History returns the most recent passes, newest first
func (m *Manager) History(limit int) ([]PassRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.Query(selectPasses+`ORDER BY start_time DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []PassRecord
	for rows.Next() {
		record, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// LastSuccess returns the newest successful pass, or nil when there is none
func (m *Manager) LastSuccess() (*PassRecord, error) {
	row := m.db.QueryRow(selectPasses+`WHERE status = ? ORDER BY start_time DESC, rowid DESC LIMIT 1`, string(StatusSuccess))

	record, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPass(s scanner) (PassRecord, error) {
	var record PassRecord
	var status string
	err := s.Scan(
		&record.ID,
		&record.StartTime,
		&record.EndTime,
		&status,
		&record.Linked,
		&record.Skipped,
		&record.Cached,
		&record.PathMaps,
		&record.Error,
	)
	record.Status = PassStatus(status)
	return record, err
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
