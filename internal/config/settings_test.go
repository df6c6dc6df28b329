package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := Load(path)
	require.NoError(t, err)

	assert.True(t, s.SystemTrayEnabled)
	assert.False(t, s.SilentStartEnabled)
	assert.False(t, s.DBMonitoringEnabled)
	assert.Equal(t, time.Second, s.Switch.SettleDelay)
	assert.Equal(t, DefaultMarkerKey, s.Keys.Marker)
	assert.Equal(t, DefaultNotificationPrefix, s.Keys.NotificationPrefix)
	assert.Contains(t, s.Keys.WellKnown, DefaultAuthStatusKey)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  "system_tray_enabled": false,
  "db_monitoring_enabled": true,
  "antigravity": {"executable_path": "/opt/antigravity/antigravity"},
  "switch": {"settle_delay": "250ms"},
  "logging": {"level": "debug"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.False(t, s.SystemTrayEnabled)
	assert.True(t, s.DBMonitoringEnabled)
	assert.Equal(t, "/opt/antigravity/antigravity", s.Antigravity.ExecutablePath)
	assert.Equal(t, 250*time.Millisecond, s.Switch.SettleDelay)
	assert.Equal(t, "debug", s.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultAuthStatusKey, s.Keys.AuthStatus)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	t.Setenv("ANTIGRAVITY_AGENT_LOGGING_LEVEL", "warn")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", s.Logging.Level)
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logging": {"level": "verbose"}}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_SettleDelayBounds(t *testing.T) {
	s := Defaults()
	s.Switch.SettleDelay = 0
	assert.Error(t, s.Validate())

	s.Switch.SettleDelay = 11 * time.Second
	assert.Error(t, s.Validate())

	s.Switch.SettleDelay = 2 * time.Second
	assert.NoError(t, s.Validate())
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s := Defaults()
	s.SilentStartEnabled = true
	s.Switch.SettleDelay = 1500 * time.Millisecond
	s.Keys.WellKnown = []string{"a", "b", "c"}
	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.SilentStartEnabled)
	assert.Equal(t, 1500*time.Millisecond, loaded.Switch.SettleDelay)
	assert.Equal(t, []string{"a", "b", "c"}, loaded.Keys.WellKnown)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

func TestStore_SetTrayEnabled(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "settings.json"))

	enabled, err := st.TrayEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, st.SetTrayEnabled(false))
	enabled, err = st.TrayEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestDir(t *testing.T) {
	t.Run("explicit home", func(t *testing.T) {
		t.Setenv(HomeEnv, "/tmp/agent-home")
		dir, err := Dir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/agent-home", dir)
	})

	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		dir, err := Dir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/tmp/xdg", ".antigravity-agent"), dir)
	})
}

func TestPathsFor(t *testing.T) {
	root := t.TempDir()
	p := PathsFor(root)

	assert.Equal(t, filepath.Join(root, "antigravity-accounts"), p.Backups)
	assert.Equal(t, filepath.Join(root, "settings.json"), p.Settings)
	assert.Equal(t, filepath.Join(root, "switch.lock"), p.SwitchLock)
	require.NoError(t, p.Ensure())

	info, err := os.Stat(p.Backups)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_UpdateFailureWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	st := NewStore(path)

	_, err := st.Update(func(s *Settings) error {
		return s.Set("logging.level", "loud")
	})
	if err == nil {
		t.Fatal("Update() error = nil, want error")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("Update() wrote %s after a failed change", path)
	}

	s, err := st.Update(func(s *Settings) error {
		return s.Set("api.enabled", "true")
	})
	if err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}
	if !s.API.Enabled {
		t.Error("Update() did not apply api.enabled")
	}
	loaded, err := st.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if !loaded.API.Enabled {
		t.Error("api.enabled not persisted")
	}
}

func TestStore_UpdateDoesNotPersistEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	st := NewStore(path)
	t.Setenv("ANTIGRAVITY_AGENT_LOGGING_LEVEL", "debug")

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Logging.Level)

	require.NoError(t, st.SetTrayEnabled(false))

	fromFile, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "info", fromFile.Logging.Level)
	assert.False(t, fromFile.SystemTrayEnabled)

	loaded, err = st.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Logging.Level)
}
