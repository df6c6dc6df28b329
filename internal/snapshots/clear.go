package snapshots

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// StateClearer is the subset of the state store needed to sign out.
type StateClearer interface {
	FindKeys(prefix string) ([]string, error)
	DeleteKeys(keys []string) (int, error)
}

// ClearState removes the signed-in account from the store: every
// well-known key, the auth and marker keys and all notification keys.
// It returns the number of rows removed.
func (m *Manager) ClearState(kv StateClearer) (int, error) {
	seen := make(map[string]bool)
	var keys []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	for _, k := range m.keys.WellKnown {
		add(k)
	}
	add(m.keys.AuthStatus)
	add(m.keys.Marker)

	if m.keys.NotificationPrefix != "" {
		matched, err := kv.FindKeys(m.keys.NotificationPrefix)
		if err != nil {
			return 0, fmt.Errorf("failed to list notification keys: %w", err)
		}
		for _, k := range matched {
			add(k)
		}
	}

	removed, err := kv.DeleteKeys(keys)
	if err != nil {
		return 0, fmt.Errorf("failed to clear account state: %w", err)
	}
	return removed, nil
}

type authStatus struct {
	Email string `json:"email"`
}

// ActiveIdentity returns the email of the account currently signed in,
// read from the auth status key.
func (m *Manager) ActiveIdentity(kv KV) (string, error) {
	value, ok, err := kv.Get(m.keys.AuthStatus)
	if err != nil {
		return "", fmt.Errorf("failed to read auth status: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s is not set", ErrNoActiveIdentity, m.keys.AuthStatus)
	}

	var status authStatus
	if err := json.Unmarshal([]byte(value), &status); err != nil {
		return "", fmt.Errorf("%w: cannot parse %s: %v", ErrNoActiveIdentity, m.keys.AuthStatus, err)
	}
	email := strings.TrimSpace(status.Email)
	if email == "" {
		return "", fmt.Errorf("%w: %s has no email", ErrNoActiveIdentity, m.keys.AuthStatus)
	}
	return email, nil
}
