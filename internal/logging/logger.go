// Package logging provides the agent's file-backed structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TypeEnum tags a log line with the subsystem that produced it.
type TypeEnum int

const (
	TypeApp TypeEnum = iota
	TypeStore
	TypeSnapshot
	TypeProcess
	TypeSwitch
	TypeTray
	TypeAPI
)

var typeNames = map[TypeEnum]string{
	TypeApp:      "app",
	TypeStore:    "store",
	TypeSnapshot: "snapshot",
	TypeProcess:  "process",
	TypeSwitch:   "switch",
	TypeTray:     "tray",
	TypeAPI:      "api",
}

func (t TypeEnum) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Logger is the logging facade used across the agent.
type Logger interface {
	Debugf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Errorf(t TypeEnum, format string, args ...interface{})
	Close()
}

// FileName is the name of the log file created inside Options.Dir.
const FileName = "antigravity-agent.log"

// Options configures NewLogProvider.
type Options struct {
	// Dir receives antigravity-agent.log. Empty disables file output.
	Dir   string
	Level string
	// Console, when set, additionally receives human-readable output.
	Console io.Writer
}

type zeroLogger struct {
	log  zerolog.Logger
	file *os.File
}

// NewLogProvider builds a zerolog-backed Logger.
func NewLogProvider(opts Options) (Logger, error) {
	levelName := opts.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var writers []io.Writer
	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(filepath.Join(opts.Dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.Kitchen})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zeroLogger{log: log, file: file}, nil
}

func (l *zeroLogger) Debugf(t TypeEnum, format string, args ...interface{}) {
	l.log.Debug().Str("type", t.String()).Msgf(format, args...)
}

func (l *zeroLogger) Infof(t TypeEnum, format string, args ...interface{}) {
	l.log.Info().Str("type", t.String()).Msgf(format, args...)
}

func (l *zeroLogger) Warnf(t TypeEnum, format string, args ...interface{}) {
	l.log.Warn().Str("type", t.String()).Msgf(format, args...)
}

func (l *zeroLogger) Errorf(t TypeEnum, format string, args ...interface{}) {
	l.log.Error().Str("type", t.String()).Msgf(format, args...)
}

func (l *zeroLogger) Close() {
	if l.file != nil {
		_ = l.file.Sync()
		_ = l.file.Close()
	}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zeroLogger{log: zerolog.Nop()}
}

// MaskEmail hides most of the local part of an address for log output:
// "john.doe@example.com" becomes "jo***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		if len(email) <= 2 {
			return "***"
		}
		return email[:2] + "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}
