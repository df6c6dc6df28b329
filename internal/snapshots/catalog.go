package snapshots

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry describes one snapshot file.
type Entry struct {
	ID      string
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns all snapshots, most recently written first. A missing
// snapshot directory yields an empty list.
func (m *Manager) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.snapshotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			ID:      strings.TrimSuffix(de.Name(), fileExt),
			Path:    filepath.Join(m.snapshotDir, de.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].ModTime.After(entries[j].ModTime)
		}
		return entries[i].ID < entries[j].ID
	})

	return entries, nil
}

// IDs returns the account identifiers of all snapshots, most recent first.
func (m *Manager) IDs() ([]string, error) {
	entries, err := m.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids, nil
}

// Exists reports whether a snapshot for accountID is on disk.
func (m *Manager) Exists(accountID string) bool {
	path, err := m.Path(accountID)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete removes the snapshot of accountID.
func (m *Manager) Delete(accountID string) error {
	path, err := m.Path(accountID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, accountID)
		}
		return fmt.Errorf("failed to delete snapshot %s: %w", accountID, err)
	}
	return nil
}

// ClearAll removes every snapshot and returns how many were deleted.
func (m *Manager) ClearAll() (int, error) {
	entries, err := m.List()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, e := range entries {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("failed to delete snapshot file %s: %w", e.Path, err)
		}
		deleted++
	}
	return deleted, nil
}
