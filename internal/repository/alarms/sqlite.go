package alarms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
)

const currentSchemaVersion = 1

// SQLiteRepository persists alarms in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create parent directories: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps appends ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err = migrateSchema(db, dbPath); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

// Append inserts the alarm.
func (r *SQLiteRepository) Append(ctx context.Context, fired alarm.Alarm) error {
	if err := fired.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alarms (id, name, mmsi, reason, description, fired_at) VALUES (?, ?, ?, ?, ?, ?)`,
		fired.ID, fired.Name, fired.MMSI, string(fired.Reason), fired.Description,
		fired.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert alarm: %w", err)
	}

	return nil
}

// Recent returns the last n alarms, every alarm when n <= 0.
func (r *SQLiteRepository) Recent(ctx context.Context, n int) ([]alarm.Alarm, error) {
	limit := -1
	if n > 0 {
		limit = n
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, mmsi, reason, description, fired_at FROM (
			SELECT seq, id, name, mmsi, reason, description, fired_at
			FROM alarms ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}

	defer func() { _ = rows.Close() }()

	result := make([]alarm.Alarm, 0)

	for rows.Next() {
		var (
			fired   alarm.Alarm
			reason  string
			firedAt string
		)

		if err = rows.Scan(&fired.ID, &fired.Name, &fired.MMSI, &reason, &fired.Description, &firedAt); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}

		fired.Reason = alarm.Reason(reason)

		if fired.Time, err = time.Parse(time.RFC3339Nano, firedAt); err != nil {
			return nil, fmt.Errorf("parse fired_at %q: %w", firedAt, err)
		}

		result = append(result, fired)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}

	return result, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func migrateSchema(db *sql.DB, dbPath string) error {
	var tableName string

	currentVersion := 0

	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("check schema_version table: %w", err)
	default:
		err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&currentVersion)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read schema version: %w", err)
		}
	}

	if currentVersion > currentSchemaVersion {
		return fmt.Errorf("alarm database %s has schema version %d, newer than supported %d",
			dbPath, currentVersion, currentSchemaVersion)
	}

	if currentVersion == 0 {
		if err = migrateV0ToV1(db); err != nil {
			return fmt.Errorf("migration v0 to v1: %w", err)
		}
	}

	return nil
}

func migrateV0ToV1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
		`INSERT INTO schema_version (version) VALUES (1)`,
		`CREATE TABLE IF NOT EXISTS alarms (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			mmsi INTEGER NOT NULL,
			reason TEXT NOT NULL,
			description TEXT NOT NULL,
			fired_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alarms_mmsi ON alarms(mmsi)`,
	}

	for _, statement := range statements {
		if _, err = tx.Exec(statement); err != nil {
			return fmt.Errorf("exec %q: %w", statement, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	return nil
}
