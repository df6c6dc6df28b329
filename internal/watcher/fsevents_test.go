package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type counters struct {
	settings, accounts, state atomic.Int32
}

func (c *counters) callbacks() Callbacks {
	return Callbacks{
		OnSettingsChange: func() { c.settings.Add(1) },
		OnAccountsChange: func() { c.accounts.Add(1) },
		OnStateChange:    func() { c.state.Add(1) },
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func setupWatcher(t *testing.T, c *counters) (Options, *Watcher) {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		SettingsFile: filepath.Join(root, "settings.json"),
		BackupsDir:   filepath.Join(root, "antigravity-accounts"),
		StateDir:     filepath.Join(root, "globalStorage"),
		Debounce:     50 * time.Millisecond,
	}
	if err := os.MkdirAll(opts.StateDir, 0755); err != nil {
		t.Fatalf("failed to create state dir: %v", err)
	}

	w, err := New(opts, c.callbacks())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return opts, w
}

func TestNew_NothingToWatch(t *testing.T) {
	if _, err := New(Options{}, Callbacks{}); err == nil {
		t.Error("New() expected error with no paths, got nil")
	}
}

func TestClassify(t *testing.T) {
	w, err := New(Options{
		SettingsFile: "/agent/settings.json",
		BackupsDir:   "/agent/antigravity-accounts",
		StateDir:     "/data/globalStorage",
	}, Callbacks{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		path string
		kind Kind
		ok   bool
	}{
		{"/agent/settings.json", KindSettings, true},
		{"/agent/settings.json.tmp", 0, false},
		{"/agent/antigravity-accounts/a@example.com.json", KindAccounts, true},
		{"/agent/antigravity-accounts/.a.json.tmp123", 0, false},
		{"/data/globalStorage/state.vscdb", KindState, true},
		{"/data/globalStorage/state.vscdb-journal", KindState, true},
		{"/data/globalStorage/storage.json", 0, false},
	}
	for _, tt := range tests {
		kind, ok := w.classify(filepath.FromSlash(tt.path))
		if ok != tt.ok || kind != tt.kind {
			t.Errorf("classify(%q) = (%v, %v), want (%v, %v)", tt.path, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestWatcher_DebouncesSettingsWrites(t *testing.T) {
	c := &counters{}
	opts, _ := setupWatcher(t, c)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(opts.SettingsFile, []byte(`{"system_tray_enabled":true}`), 0644); err != nil {
			t.Fatalf("failed to write settings: %v", err)
		}
	}

	waitFor(t, "settings callback", func() bool { return c.settings.Load() > 0 })
	time.Sleep(150 * time.Millisecond)
	if got := c.settings.Load(); got != 1 {
		t.Errorf("settings callbacks = %d, want 1", got)
	}
	if c.accounts.Load() != 0 || c.state.Load() != 0 {
		t.Error("unrelated callbacks fired")
	}
}

func TestWatcher_AccountsAndState(t *testing.T) {
	c := &counters{}
	opts, _ := setupWatcher(t, c)

	if err := os.WriteFile(filepath.Join(opts.BackupsDir, "a@example.com.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
	waitFor(t, "accounts callback", func() bool { return c.accounts.Load() == 1 })

	if err := os.WriteFile(filepath.Join(opts.StateDir, "state.vscdb"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write state db: %v", err)
	}
	waitFor(t, "state callback", func() bool { return c.state.Load() == 1 })
}

func TestWatcher_StopDropsPending(t *testing.T) {
	c := &counters{}
	opts, w := setupWatcher(t, c)

	if err := os.WriteFile(opts.SettingsFile, []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := c.settings.Load(); got > 1 {
		t.Errorf("settings callbacks after stop = %d, want at most 1", got)
	}
}
