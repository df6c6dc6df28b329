// Package store reads and writes the Antigravity state database, a SQLite
// file holding a single key-value table.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// FileName is the state database file inside the Antigravity data directory.
const FileName = "state.vscdb"

var (
	// ErrStoreNotFound is returned when the database file does not exist.
	ErrStoreNotFound = errors.New("state database not found")
	// ErrStoreAccessDenied is returned when the file cannot be opened for
	// the requested access.
	ErrStoreAccessDenied = errors.New("state database access denied")
	// ErrNotInitialized is returned when the database has no ItemTable,
	// typically because Antigravity has never been started.
	ErrNotInitialized = errors.New("state database not initialized: start Antigravity once to create it")
)

// Store provides access to the ItemTable of a state database.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// New opens the database at dsn without any existence checks.
// Use ":memory:" for in-memory databases (useful for testing).
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// The target application may still be releasing its handle.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, classifyOpenError(fmt.Errorf("failed to set busy timeout: %w", err))
	}

	return &Store{db: db, path: dsn}, nil
}

// Open opens an existing state database for reading and writing.
func Open(path string) (*Store, error) {
	if err := checkFile(path, os.O_RDWR); err != nil {
		return nil, err
	}

	s, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := s.checkInitialized(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing state database without write access.
// It is safe to use while Antigravity is running.
func OpenReadOnly(path string) (*Store, error) {
	if err := checkFile(path, os.O_RDONLY); err != nil {
		return nil, err
	}

	s, err := New("file:" + path + "?mode=ro")
	if err != nil {
		return nil, err
	}
	s.path = path
	s.readOnly = true
	if err := s.checkInitialized(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func checkFile(path string, flag int) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrStoreAccessDenied, path)
		}
		return fmt.Errorf("failed to stat database: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrStoreNotFound, path)
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrStoreAccessDenied, path)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	return f.Close()
}

func (s *Store) checkInitialized() error {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ItemTable'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotInitialized
	}
	if err != nil {
		return classifyOpenError(fmt.Errorf("failed to inspect database: %w", err))
	}
	return nil
}

// classifyOpenError maps driver failures that mean "not allowed" onto
// ErrStoreAccessDenied.
func classifyOpenError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "readonly") || strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "unable to open") {
		return fmt.Errorf("%w: %v", ErrStoreAccessDenied, err)
	}
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// ReadOnly reports whether the store was opened with OpenReadOnly.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// CreateSchema creates ItemTable with the same definition Antigravity uses.
func (s *Store) CreateSchema() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
