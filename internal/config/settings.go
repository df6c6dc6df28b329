package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// ANTIGRAVITY_AGENT_LOGGING_LEVEL=debug.
const EnvPrefix = "ANTIGRAVITY_AGENT"

// Default store keys of the Antigravity state database.
const (
	DefaultAuthStatusKey      = "antigravityAuthStatus"
	DefaultAgentStateKey      = "jetskiStateSync.agentManagerInitState"
	DefaultMarkerKey          = "__$__targetStorageMarker"
	DefaultNotificationPrefix = "antigravity.notification."
)

type AntigravityConfig struct {
	DataPath       string `mapstructure:"data_path" json:"data_path"`
	ExecutablePath string `mapstructure:"executable_path" json:"executable_path"`
}

type SwitchConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay" json:"settle_delay" validate:"required|min:1|max:10000000000"`
}

type KeysConfig struct {
	WellKnown          []string `mapstructure:"well_known" json:"well_known" validate:"required|minLen:1"`
	Marker             string   `mapstructure:"marker" json:"marker" validate:"required"`
	AuthStatus         string   `mapstructure:"auth_status" json:"auth_status" validate:"required"`
	NotificationPrefix string   `mapstructure:"notification_prefix" json:"notification_prefix" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level" validate:"required|in:trace,debug,info,warn,error"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Address string `mapstructure:"address" json:"address" validate:"required"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" json:"enabled"`
	SizeMB  int           `mapstructure:"size_mb" json:"size_mb" validate:"min:0"`
	TTL     time.Duration `mapstructure:"ttl" json:"ttl" validate:"min:0"`
}

// Settings is the persisted agent configuration.
type Settings struct {
	SystemTrayEnabled   bool              `mapstructure:"system_tray_enabled" json:"system_tray_enabled"`
	SilentStartEnabled  bool              `mapstructure:"silent_start_enabled" json:"silent_start_enabled"`
	DBMonitoringEnabled bool              `mapstructure:"db_monitoring_enabled" json:"db_monitoring_enabled"`
	Antigravity         AntigravityConfig `mapstructure:"antigravity" json:"antigravity"`
	Switch              SwitchConfig      `mapstructure:"switch" json:"switch"`
	Keys                KeysConfig        `mapstructure:"keys" json:"keys"`
	Logging             LoggingConfig     `mapstructure:"logging" json:"logging"`
	API                 APIConfig         `mapstructure:"api" json:"api"`
	Metrics             MetricsConfig     `mapstructure:"metrics" json:"metrics"`
	Cache               CacheConfig       `mapstructure:"cache" json:"cache"`
}

// Defaults returns the settings used when no file exists.
func Defaults() *Settings {
	return &Settings{
		SystemTrayEnabled: true,
		Switch:            SwitchConfig{SettleDelay: time.Second},
		Keys: KeysConfig{
			WellKnown:          []string{DefaultAuthStatusKey, DefaultAgentStateKey},
			Marker:             DefaultMarkerKey,
			AuthStatus:         DefaultAuthStatusKey,
			NotificationPrefix: DefaultNotificationPrefix,
		},
		Logging: LoggingConfig{Level: "info"},
		API:     APIConfig{Address: "127.0.0.1:18970"},
		Cache:   CacheConfig{Enabled: true, SizeMB: 1, TTL: 30 * time.Second},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("system_tray_enabled", d.SystemTrayEnabled)
	v.SetDefault("silent_start_enabled", d.SilentStartEnabled)
	v.SetDefault("db_monitoring_enabled", d.DBMonitoringEnabled)
	v.SetDefault("antigravity.data_path", "")
	v.SetDefault("antigravity.executable_path", "")
	v.SetDefault("switch.settle_delay", d.Switch.SettleDelay)
	v.SetDefault("keys.well_known", d.Keys.WellKnown)
	v.SetDefault("keys.marker", d.Keys.Marker)
	v.SetDefault("keys.auth_status", d.Keys.AuthStatus)
	v.SetDefault("keys.notification_prefix", d.Keys.NotificationPrefix)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("api.enabled", d.API.Enabled)
	v.SetDefault("api.address", d.API.Address)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.size_mb", d.Cache.SizeMB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
}

// Load reads the settings file at path. A missing file yields defaults.
// Environment variables prefixed with ANTIGRAVITY_AGENT override file values.
func Load(path string) (*Settings, error) {
	return load(path, true)
}

// LoadFile reads the settings file at path without environment overrides.
func LoadFile(path string) (*Settings, error) {
	return load(path, false)
}

func load(path string, withEnv bool) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if withEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints.
func (s *Settings) Validate() error {
	v := validate.Struct(s)
	if !v.Validate() {
		return fmt.Errorf("invalid settings: %s", v.Errors.One())
	}
	return nil
}

// Encode renders s as the indented JSON document Save writes. Durations
// are written as strings such as "1s".
func Encode(s *Settings) ([]byte, error) {
	doc := map[string]interface{}{
		"system_tray_enabled":   s.SystemTrayEnabled,
		"silent_start_enabled":  s.SilentStartEnabled,
		"db_monitoring_enabled": s.DBMonitoringEnabled,
		"antigravity":           s.Antigravity,
		"switch": map[string]string{
			"settle_delay": s.Switch.SettleDelay.String(),
		},
		"keys":    s.Keys,
		"logging": s.Logging,
		"api":     s.API,
		"metrics": s.Metrics,
		"cache": map[string]interface{}{
			"enabled": s.Cache.Enabled,
			"size_mb": s.Cache.SizeMB,
			"ttl":     s.Cache.TTL.String(),
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return data, nil
}

// Save writes the settings to path atomically.
func Save(path string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Store is a settings file shared by the CLI, tray manager and daemon.
// Reads and writes go through one mutex so read-modify-write updates from
// the same process do not interleave.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current settings.
func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Load(s.path)
}

// Update applies fn to the settings file and saves the result. Environment
// overrides are not applied, so they are never persisted. Nothing is
// written when fn fails.
func (s *Store) Update(fn func(*Settings) error) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}
	if err := Save(s.path, current); err != nil {
		return nil, err
	}
	return current, nil
}

// TrayEnabled reports the persisted system_tray_enabled flag.
func (s *Store) TrayEnabled() (bool, error) {
	settings, err := s.Load()
	if err != nil {
		return false, err
	}
	return settings.SystemTrayEnabled, nil
}

// SetTrayEnabled persists system_tray_enabled.
func (s *Store) SetTrayEnabled(enabled bool) error {
	_, err := s.Update(func(st *Settings) error {
		st.SystemTrayEnabled = enabled
		return nil
	})
	return err
}
