// Package watcher supports the tray daemon: it watches the agent's
// settings and backups and the Antigravity state database for changes,
// and controls the daemon process through a PID file.
//
// Events are debounced per kind, so an atomic save that produces several
// filesystem events triggers one callback.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Options{
//		SettingsFile: paths.Settings,
//		BackupsDir:   paths.Backups,
//	}, watcher.Callbacks{
//		OnSettingsChange: func() { trayManager.Sync() },
//		OnAccountsChange: func() { trayManager.Refresh() },
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
