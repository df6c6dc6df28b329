package snapshots

import (
	"bytes"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// Capture copies the account's keys from kv into its snapshot file and
// returns the snapshot name and whether an earlier snapshot was replaced.
func (m *Manager) Capture(kv KV, accountID string) (string, bool, error) {
	name, err := SnapshotName(accountID)
	if err != nil {
		return "", false, err
	}

	// Ensure snapshot directory exists
	if err := os.MkdirAll(m.snapshotDir, 0755); err != nil {
		return "", false, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	path := m.pathFor(name)
	_, statErr := os.Stat(path)
	overwritten := statErr == nil

	doc, err := m.buildDocument(kv, accountID)
	if err != nil {
		return "", false, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return "", false, fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return name, overwritten, nil
}

func (m *Manager) buildDocument(kv KV, accountID string) (Document, error) {
	doc := Document{}

	put := func(key string, value interface{}) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: key %s: %v", ErrSerialization, key, err)
		}
		doc[key] = raw
		return nil
	}

	// Absent keys are omitted: Antigravity may not have written them yet.
	// The marker is handled below even when listed here.
	for _, key := range m.keys.WellKnown {
		if key == m.keys.Marker {
			continue
		}
		value, ok, err := kv.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read key %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if err := put(key, value); err != nil {
			return nil, err
		}
	}

	if m.keys.NotificationPrefix != "" {
		matched, err := kv.FindKeys(m.keys.NotificationPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list notification keys: %w", err)
		}

		captured := make([]string, 0, len(matched))
		for _, key := range matched {
			value, ok, err := kv.Get(key)
			if err != nil {
				return nil, fmt.Errorf("failed to read key %s: %w", key, err)
			}
			if !ok {
				continue
			}
			if err := put(key, value); err != nil {
				return nil, err
			}
			captured = append(captured, key)
		}

		if len(captured) > 0 {
			if err := put(FieldNotificationKeys, captured); err != nil {
				return nil, err
			}
		}
	}

	if m.keys.Marker != "" {
		value, ok, err := kv.Get(m.keys.Marker)
		if err != nil {
			return nil, fmt.Errorf("failed to read key %s: %w", m.keys.Marker, err)
		}
		if ok {
			var compact bytes.Buffer
			// An unparsable marker is left out rather than stored as text.
			if json.Valid([]byte(value)) && json.Compact(&compact, []byte(value)) == nil {
				doc[m.keys.Marker] = json.RawMessage(compact.Bytes())
			}
		}
	}

	if err := put(FieldAccountEmail, accountID); err != nil {
		return nil, err
	}
	if err := put(FieldBackupTime, m.now().Format(time.RFC3339)); err != nil {
		return nil, err
	}

	return doc, nil
}
