package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// isNoSuchTable reports whether err is SQLite complaining about a missing table.
func isNoSuchTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func wrap(op string, err error) error {
	if isNoSuchTable(err) {
		return ErrNotInitialized
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Get returns the value stored under key. The boolean is false when the key
// is absent.
func (s *Store) Get(key string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM ItemTable WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("get key "+key, err)
	}
	return value.String, true, nil
}

// Set inserts or replaces the value of key.
func (s *Store) Set(key, value string) error {
	if s.readOnly {
		return fmt.Errorf("%w: store opened read-only", ErrStoreAccessDenied)
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO ItemTable (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return wrap("set key "+key, err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so prefix is matched literally.
func escapeLike(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}

// FindKeys returns every key starting with prefix, sorted.
func (s *Store) FindKeys(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM ItemTable WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, wrap("find keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if s.readOnly {
		return fmt.Errorf("%w: store opened read-only", ErrStoreAccessDenied)
	}
	if _, err := s.db.Exec("DELETE FROM ItemTable WHERE key = ?", key); err != nil {
		return wrap("delete key "+key, err)
	}
	return nil
}

// DeleteKeys removes all keys in one transaction and returns how many rows
// existed.
func (s *Store) DeleteKeys(keys []string) (int, error) {
	if s.readOnly {
		return 0, fmt.Errorf("%w: store opened read-only", ErrStoreAccessDenied)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM ItemTable WHERE key = ?")
	if err != nil {
		return 0, wrap("prepare delete", err)
	}
	defer stmt.Close()

	removed := 0
	for _, key := range keys {
		res, err := stmt.Exec(key)
		if err != nil {
			return 0, wrap("delete key "+key, err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			removed += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}

// Count returns the number of rows in ItemTable.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM ItemTable").Scan(&n); err != nil {
		return 0, wrap("count keys", err)
	}
	return n, nil
}
