package snapshots

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"
)

// Restore writes the account's snapshot back into kv key by key. A key that
// cannot be written is recorded in the summary and the remaining keys are
// still attempted. The error is non-nil only when nothing was written or the
// snapshot cannot be read.
func (m *Manager) Restore(kv KV, accountID string) (*Summary, error) {
	doc, err := m.Load(accountID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{AccountID: accountID}

	keys := make([]string, 0, len(doc))
	for key := range doc {
		if !isMetadata(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, err := m.wireValue(key, doc[key])
		if err != nil {
			summary.Skipped = append(summary.Skipped, SkippedKey{Key: key, Reason: err})
			continue
		}
		if err := kv.Set(key, value); err != nil {
			summary.Skipped = append(summary.Skipped, SkippedKey{Key: key, Reason: err})
			continue
		}
		summary.Written = append(summary.Written, key)
	}

	if len(summary.Written) == 0 {
		return summary, fmt.Errorf("%w: %d keys skipped for %s", ErrNothingRestored, len(summary.Skipped), accountID)
	}

	return summary, nil
}

// wireValue converts a snapshot field back to the string stored in the
// table. Strings are written verbatim, structured values are re-serialized.
// The marker is always re-serialized since it was captured parsed.
func (m *Manager) wireValue(key string, raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", errUnsupportedValue
	}

	var compact bytes.Buffer
	if key == m.keys.Marker {
		if err := json.Compact(&compact, trimmed); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return compact.String(), nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return s, nil
	case '{', '[':
		if err := json.Compact(&compact, trimmed); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return compact.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", errUnsupportedValue, string(trimmed))
	}
}

// Load reads and parses the snapshot of accountID.
func (m *Manager) Load(accountID string) (Document, error) {
	path, err := m.Path(accountID)
	if err != nil {
		return nil, err
	}
	return loadSnapshotFile(path)
}

// loadSnapshotFile reads and parses a snapshot JSON file.
func loadSnapshotFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return parseDocument(data)
}

func parseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptSnapshot)
	}
	return doc, nil
}
