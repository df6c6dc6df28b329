package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownKey is returned by Set for a key with no setter.
var ErrUnknownKey = errors.New("unknown settings key")

type setter func(s *Settings, value string) error

func boolSetter(field func(*Settings) *bool) setter {
	return func(s *Settings, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*field(s) = b
		return nil
	}
}

func stringSetter(field func(*Settings) *string) setter {
	return func(s *Settings, value string) error {
		*field(s) = value
		return nil
	}
}

func durationSetter(field func(*Settings) *time.Duration) setter {
	return func(s *Settings, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*field(s) = d
		return nil
	}
}

var setters = map[string]setter{
	"system_tray_enabled":         boolSetter(func(s *Settings) *bool { return &s.SystemTrayEnabled }),
	"silent_start_enabled":        boolSetter(func(s *Settings) *bool { return &s.SilentStartEnabled }),
	"db_monitoring_enabled":       boolSetter(func(s *Settings) *bool { return &s.DBMonitoringEnabled }),
	"antigravity.data_path":       stringSetter(func(s *Settings) *string { return &s.Antigravity.DataPath }),
	"antigravity.executable_path": stringSetter(func(s *Settings) *string { return &s.Antigravity.ExecutablePath }),
	"switch.settle_delay":         durationSetter(func(s *Settings) *time.Duration { return &s.Switch.SettleDelay }),
	"keys.marker":                 stringSetter(func(s *Settings) *string { return &s.Keys.Marker }),
	"keys.auth_status":            stringSetter(func(s *Settings) *string { return &s.Keys.AuthStatus }),
	"keys.notification_prefix":    stringSetter(func(s *Settings) *string { return &s.Keys.NotificationPrefix }),
	"keys.well_known": func(s *Settings, value string) error {
		var keys []string
		for _, k := range strings.Split(value, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		s.Keys.WellKnown = keys
		return nil
	},
	"logging.level":   stringSetter(func(s *Settings) *string { return &s.Logging.Level }),
	"api.enabled":     boolSetter(func(s *Settings) *bool { return &s.API.Enabled }),
	"api.address":     stringSetter(func(s *Settings) *string { return &s.API.Address }),
	"metrics.enabled": boolSetter(func(s *Settings) *bool { return &s.Metrics.Enabled }),
	"cache.enabled":   boolSetter(func(s *Settings) *bool { return &s.Cache.Enabled }),
	"cache.size_mb": func(s *Settings, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		s.Cache.SizeMB = n
		return nil
	},
	"cache.ttl": durationSetter(func(s *Settings) *time.Duration { return &s.Cache.TTL }),
}

// Keys lists the dotted keys Set accepts, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value into the field named by the dotted key and validates
// the result. s is left unchanged on error.
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	next := *s
	next.Keys.WellKnown = append([]string(nil), s.Keys.WellKnown...)
	if err := set(&next, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}
