package snapshots

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// BundleVersion is written into every export bundle.
const BundleVersion = 1

// Bundle is the decompressed content of an export file.
type Bundle struct {
	Version   int                        `json:"version"`
	CreatedAt time.Time                  `json:"created_at"`
	Snapshots map[string]json.RawMessage `json:"snapshots"`
}

// ImportResult reports which snapshots an import wrote.
type ImportResult struct {
	Imported []string
	Skipped  []string
}

// Export writes every snapshot into w as a zstd-compressed JSON bundle and
// returns the number of snapshots exported.
func (m *Manager) Export(w io.Writer) (int, error) {
	entries, err := m.List()
	if err != nil {
		return 0, err
	}

	bundle := Bundle{
		Version:   BundleVersion,
		CreatedAt: m.now().UTC(),
		Snapshots: make(map[string]json.RawMessage, len(entries)),
	}
	for _, e := range entries {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			return 0, fmt.Errorf("failed to read snapshot %s: %w", e.ID, err)
		}
		if _, err := parseDocument(data); err != nil {
			return 0, fmt.Errorf("snapshot %s: %w", e.ID, err)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, data); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		bundle.Snapshots[e.ID] = compact.Bytes()
	}

	jsonData, err := json.Marshal(bundle)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()

	compressed := encoder.EncodeAll(jsonData, make([]byte, 0, len(jsonData)/2))
	if _, err := w.Write(compressed); err != nil {
		return 0, fmt.Errorf("failed to write bundle: %w", err)
	}
	return len(bundle.Snapshots), nil
}

// Import reads a bundle produced by Export and writes its snapshots.
// Existing snapshots are kept unless overwrite is set.
func (m *Manager) Import(r io.Reader, overwrite bool) (*ImportResult, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	jsonData, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bundle is not zstd data: %v", ErrCorruptSnapshot, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(jsonData, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if bundle.Version != BundleVersion {
		return nil, fmt.Errorf("%w: unsupported bundle version %d", ErrCorruptSnapshot, bundle.Version)
	}

	// Validate everything before touching the directory.
	ids := make([]string, 0, len(bundle.Snapshots))
	for id, raw := range bundle.Snapshots {
		if _, err := SnapshotName(id); err != nil {
			return nil, err
		}
		if _, err := parseDocument(raw); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", id, err)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if err := os.MkdirAll(m.snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	result := &ImportResult{}
	for _, id := range ids {
		if !overwrite && m.Exists(id) {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, bundle.Snapshots[id], "", "  "); err != nil {
			return result, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		path, _ := m.Path(id)
		if err := writeFileAtomic(path, pretty.Bytes()); err != nil {
			return result, fmt.Errorf("failed to write snapshot %s: %w", id, err)
		}
		result.Imported = append(result.Imported, id)
	}
	return result, nil
}
