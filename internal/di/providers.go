// Package di assembles the agent's object graph with google/wire.
package di

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/devalexanderdaza/antigravity-agent/internal/api"
	"github.com/devalexanderdaza/antigravity-agent/internal/config"
	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
	"github.com/devalexanderdaza/antigravity-agent/internal/platform"
	"github.com/devalexanderdaza/antigravity-agent/internal/process"
	"github.com/devalexanderdaza/antigravity-agent/internal/snapshots"
	"github.com/devalexanderdaza/antigravity-agent/internal/store"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
	"github.com/devalexanderdaza/antigravity-agent/internal/tray"
	"github.com/devalexanderdaza/antigravity-agent/internal/watcher"
)

// Options are the command-line inputs to the graph.
type Options struct {
	Paths config.Paths
	// DBPath overrides state database discovery when set.
	DBPath  string
	Verbose bool
}

// Agent is what every command needs.
type Agent struct {
	Options   Options
	Settings  *config.Settings
	Store     *config.Store
	Logger    logging.Logger
	Policy    platform.Policy
	Processes *process.Controller
	Launcher  *process.Launcher
	Snapshots *snapshots.Manager
	OpenStore switcher.OpenStoreFunc
	Registry  *prometheus.Registry
	Switcher  *switcher.Orchestrator
}

// StateDBPath resolves the state database location.
func (a *Agent) StateDBPath() (string, error) {
	return stateDBPath(a.Options, a.Policy, a.Settings)
}

// Daemon adds the tray, its account cache, the file watcher and the
// control API to an Agent.
type Daemon struct {
	Agent    *Agent
	Backend  *tray.SystrayBackend
	Accounts *tray.CachedAccounts
	Tray     *tray.Manager
	Watcher  *watcher.Watcher
	API      *api.Server
}

func ProvideSettingsStore(opts Options) *config.Store {
	return config.NewStore(opts.Paths.Settings)
}

func ProvideSettings(s *config.Store) (*config.Settings, error) {
	return s.Load()
}

// ProvideLogger opens the log file under the agent's logs directory and,
// with --verbose, mirrors it to stderr.
func ProvideLogger(opts Options, settings *config.Settings) (logging.Logger, func(), error) {
	if err := opts.Paths.Ensure(); err != nil {
		return nil, nil, err
	}
	lo := logging.Options{Dir: opts.Paths.Logs, Level: settings.Logging.Level}
	if opts.Verbose {
		lo.Console = os.Stderr
	}
	logger, err := logging.NewLogProvider(lo)
	if err != nil {
		return nil, nil, err
	}
	return logger, logger.Close, nil
}

func ProvidePolicy() platform.Policy {
	return platform.Current()
}

func ProvideController(p platform.Policy, logger logging.Logger) *process.Controller {
	host := process.HostTable{}
	return process.NewController(p.Patterns, p.Exclude, host, host, logger)
}

func ProvideLauncher(p platform.Policy, settings *config.Settings) *process.Launcher {
	return p.Launcher(settings.Antigravity.ExecutablePath)
}

func ProvideSnapshots(opts Options, settings *config.Settings) *snapshots.Manager {
	k := settings.Keys
	return snapshots.New(opts.Paths.Backups, snapshots.KeySet{
		WellKnown:          k.WellKnown,
		Marker:             k.Marker,
		AuthStatus:         k.AuthStatus,
		NotificationPrefix: k.NotificationPrefix,
	})
}

func stateDBPath(opts Options, p platform.Policy, settings *config.Settings) (string, error) {
	if opts.DBPath != "" {
		return opts.DBPath, nil
	}
	return p.StateDBPath(settings.Antigravity.DataPath)
}

// ProvideOpenStore defers state database discovery to the first workflow
// that needs it, so commands that only touch snapshots work without
// Antigravity installed.
func ProvideOpenStore(opts Options, p platform.Policy, settings *config.Settings) switcher.OpenStoreFunc {
	return func() (switcher.StateStore, error) {
		path, err := stateDBPath(opts, p, settings)
		if err != nil {
			return nil, err
		}
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// ProvideRegistry returns nil unless metrics are enabled.
func ProvideRegistry(settings *config.Settings) *prometheus.Registry {
	if !settings.Metrics.Enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideOrchestrator(
	opts Options,
	processes *process.Controller,
	launcher *process.Launcher,
	openStore switcher.OpenStoreFunc,
	snaps *snapshots.Manager,
	settings *config.Settings,
	reg *prometheus.Registry,
	logger logging.Logger,
) *switcher.Orchestrator {
	metrics := switcher.NopMetrics()
	if reg != nil {
		metrics = switcher.NewMetrics(reg)
	}
	return switcher.New(switcher.Deps{
		Processes: processes,
		Launcher:  launcher,
		OpenStore: openStore,
		Snapshots: snaps,
		Settle:    settings.Switch.SettleDelay,
		Logger:    logger,
		Metrics:   metrics,
		LockFile:  opts.Paths.SwitchLock,
	})
}

func ProvideBackend() *tray.SystrayBackend {
	return tray.NewSystrayBackend()
}

func ProvideCachedAccounts(snaps *snapshots.Manager, settings *config.Settings, logger logging.Logger) *tray.CachedAccounts {
	if !settings.Cache.Enabled {
		return tray.NewCachedAccounts(snaps, 0, 0, logger)
	}
	return tray.NewCachedAccounts(snaps, settings.Cache.SizeMB, settings.Cache.TTL, logger)
}

func ProvideTrayManager(
	s *config.Store,
	accounts *tray.CachedAccounts,
	backend *tray.SystrayBackend,
	sw *switcher.Orchestrator,
	logger logging.Logger,
) *tray.Manager {
	return tray.NewManager(tray.Options{
		Settings: s,
		Accounts: accounts,
		Backend:  backend,
		Switcher: sw,
		Quit:     backend.Stop,
		Logger:   logger,
	})
}

// ProvideWatcher watches the settings file and backups directory, plus
// the state database directory when db_monitoring_enabled is set and the
// directory can be found.
func ProvideWatcher(
	opts Options,
	p platform.Policy,
	settings *config.Settings,
	accounts *tray.CachedAccounts,
	manager *tray.Manager,
	logger logging.Logger,
) (*watcher.Watcher, error) {
	wo := watcher.Options{
		SettingsFile: opts.Paths.Settings,
		BackupsDir:   opts.Paths.Backups,
		Logger:       logger,
	}
	if settings.DBMonitoringEnabled {
		path, err := stateDBPath(opts, p, settings)
		switch {
		case errors.Is(err, platform.ErrDataDirNotFound):
			logger.Warnf(logging.TypeApp, "state database monitoring disabled: %v", err)
		case err != nil:
			return nil, err
		default:
			wo.StateDir = filepath.Dir(path)
		}
	}

	return watcher.New(wo, watcher.Callbacks{
		OnSettingsChange: func() {
			if err := manager.Sync(); err != nil {
				logger.Errorf(logging.TypeTray, "failed to apply settings: %v", err)
			}
		},
		OnAccountsChange: func() {
			accounts.Invalidate()
			refresh(manager, logger)
		},
		OnStateChange: func() {
			refresh(manager, logger)
		},
	})
}

func refresh(m *tray.Manager, logger logging.Logger) {
	if err := m.Refresh(); err != nil {
		logger.Errorf(logging.TypeTray, "failed to refresh tray menu: %v", err)
	}
}

func ProvideAPIServer(
	a *Agent,
	accounts *tray.CachedAccounts,
	manager *tray.Manager,
) *api.Server {
	deps := api.Deps{
		Switcher:  a.Switcher,
		Catalog:   a.Snapshots,
		Processes: a.Processes,
		Launcher:  a.Launcher,
		Tray:      manager,
		Logger:    a.Logger,
		OnAccountsChanged: func() {
			accounts.Invalidate()
			refresh(manager, a.Logger)
		},
	}
	if a.Registry != nil {
		deps.Gatherer = a.Registry
	}
	return api.New(deps)
}
