package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// SQLKV implements KV on a single key/value table. The same type serves the
// SQLite and MySQL backends; only the schema and upsert statement differ.
type SQLKV struct {
	db      *sql.DB
	dialect string
	upsert  string
}

// NewSQLite opens (and creates if needed) a SQLite database at dbPath.
// It uses the pure Go modernc.org/sqlite driver.
func NewSQLite(dbPath string) (*SQLKV, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS client_state (
		state_key   TEXT PRIMARY KEY,
		state_value TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &SQLKV{
		db:      db,
		dialect: "sqlite",
		upsert: `INSERT INTO client_state (state_key, state_value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(state_key) DO UPDATE SET state_value = excluded.state_value, updated_at = excluded.updated_at`,
	}, nil
}

// NewMySQLFromDSN connects to MySQL. The DSN format is: user:password@tcp(host:port)/database
func NewMySQLFromDSN(dsn string) (*SQLKV, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: failed to connect: %w", err)
	}

	kv, err := NewMySQL(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// NewMySQL creates the state table on an open MySQL handle. The returned
// SQLKV owns db and closes it on Close.
func NewMySQL(db *sql.DB) (*SQLKV, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS client_state (
		state_key   VARCHAR(191) PRIMARY KEY,
		state_value TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("mysql: failed to create schema: %w", err)
	}

	return &SQLKV{
		db:      db,
		dialect: "mysql",
		upsert: `INSERT INTO client_state (state_key, state_value, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE state_value = VALUES(state_value), updated_at = VALUES(updated_at)`,
	}, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT state_value FROM client_state WHERE state_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s: failed to read key: %w", s.dialect, err)
	}
	return value, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.upsert, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: failed to write key: %w", s.dialect, err)
	}
	return nil
}

func (s *SQLKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM client_state WHERE state_key = ?", key); err != nil {
		return fmt.Errorf("%s: failed to delete key: %w", s.dialect, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLKV) Close() error {
	return s.db.Close()
}
