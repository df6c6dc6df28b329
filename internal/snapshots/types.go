// Package snapshots captures and restores per-account copies of the
// Antigravity state database entries.
package snapshots

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Restore-metadata fields of a snapshot document.
const (
	FieldAccountEmail     = "account_email"
	FieldBackupTime       = "backup_time"
	FieldNotificationKeys = "notification_keys"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrCorruptSnapshot  = errors.New("corrupt snapshot")
	ErrSerialization    = errors.New("snapshot serialization failed")
	ErrNothingRestored  = errors.New("no keys were restored")
	ErrInvalidAccountID = errors.New("invalid account identifier")
	ErrNoActiveIdentity = errors.New("no active identity in state database")
	errUnsupportedValue = errors.New("value cannot be written as a string")
)

// KeySet names the store keys a snapshot covers.
type KeySet struct {
	// WellKnown keys are copied verbatim as strings.
	WellKnown []string
	// Marker is parsed as JSON and stored structured.
	Marker string
	// AuthStatus holds the signed-in account as JSON with an "email" field.
	AuthStatus string
	// NotificationPrefix selects notification keys by name prefix.
	NotificationPrefix string
}

// KV is the subset of the state store a snapshot needs.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	FindKeys(prefix string) ([]string, error)
}

// Document is a parsed snapshot file: key to raw JSON value.
type Document map[string]json.RawMessage

func (d Document) stringField(name string) string {
	raw, ok := d[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// AccountID returns the account_email field.
func (d Document) AccountID() string {
	return d.stringField(FieldAccountEmail)
}

// BackupTime returns the parsed backup_time field, or the zero time.
func (d Document) BackupTime() time.Time {
	t, err := time.Parse(time.RFC3339, d.stringField(FieldBackupTime))
	if err != nil {
		return time.Time{}
	}
	return t
}

// NotificationKeys returns the notification key list recorded at capture.
func (d Document) NotificationKeys() []string {
	raw, ok := d[FieldNotificationKeys]
	if !ok {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil
	}
	return keys
}

func isMetadata(key string) bool {
	switch key {
	case FieldAccountEmail, FieldBackupTime, FieldNotificationKeys:
		return true
	}
	return false
}

// SkippedKey is a key the restore could not write.
type SkippedKey struct {
	Key    string
	Reason error
}

// Summary reports the outcome of a restore.
type Summary struct {
	AccountID string
	Written   []string
	Skipped   []SkippedKey
}

// Err returns a *PartialRestoreError when some keys were skipped and at
// least one was written, nil otherwise.
func (s *Summary) Err() error {
	if len(s.Skipped) == 0 || len(s.Written) == 0 {
		return nil
	}
	return &PartialRestoreError{Written: len(s.Written), Skipped: len(s.Skipped)}
}

// PartialRestoreError is a warning: the restore wrote some keys but not all.
type PartialRestoreError struct {
	Written int
	Skipped int
}

func (e *PartialRestoreError) Error() string {
	return fmt.Sprintf("partial restore: %d keys written, %d skipped", e.Written, e.Skipped)
}

// Manager manages snapshot capture, restoration and the snapshot directory.
type Manager struct {
	snapshotDir string
	keys        KeySet
	now         func() time.Time
}

// New creates a new snapshot Manager.
func New(snapshotDir string, keys KeySet) *Manager {
	return &Manager{
		snapshotDir: snapshotDir,
		keys:        keys,
		now:         time.Now,
	}
}

// Dir returns the snapshot directory.
func (m *Manager) Dir() string {
	return m.snapshotDir
}

// Keys returns the key set the manager captures.
func (m *Manager) Keys() KeySet {
	return m.keys
}
