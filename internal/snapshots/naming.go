package snapshots

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

// SnapshotName derives the file stem for an account. The mapping is
// deterministic and idempotent: SnapshotName(SnapshotName(id)) == SnapshotName(id).
func SnapshotName(accountID string) (string, error) {
	id := strings.TrimSpace(accountID)
	if id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountID, accountID)
	}

	var b strings.Builder
	for _, r := range id {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.snapshotDir, name+fileExt)
}

// Path returns the snapshot file location for accountID.
func (m *Manager) Path(accountID string) (string, error) {
	name, err := SnapshotName(accountID)
	if err != nil {
		return "", err
	}
	return m.pathFor(name), nil
}

// writeFileAtomic writes data to a temporary file next to path, syncs it
// and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return err
	}
	return nil
}
