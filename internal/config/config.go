// Package config locates the agent's files and loads its settings.
package config

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the agent directory when set.
const HomeEnv = "ANTIGRAVITY_AGENT_HOME"

const (
	agentDirName   = ".antigravity-agent"
	backupsDirName = "antigravity-accounts"
	logsDirName    = "logs"
	settingsName   = "settings.json"
	pidFileName    = "tray.pid"
	daemonLogName  = "tray-daemon.log"
	switchLockName = "switch.lock"
)

// Dir returns the agent directory, respecting ANTIGRAVITY_AGENT_HOME and
// XDG_CONFIG_HOME. Defaults to <user config dir>/.antigravity-agent.
func Dir() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		var err error
		base, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(base, agentDirName), nil
}

// Paths lists every file and directory the agent owns under one root.
type Paths struct {
	Root      string
	Backups   string
	Logs      string
	Settings  string
	PIDFile   string
	DaemonLog string

	// SwitchLock serializes workflows across agent processes.
	SwitchLock string
}

// PathsFor lays out the agent files under root.
func PathsFor(root string) Paths {
	return Paths{
		Root:      root,
		Backups:   filepath.Join(root, backupsDirName),
		Logs:      filepath.Join(root, logsDirName),
		Settings:  filepath.Join(root, settingsName),
		PIDFile:   filepath.Join(root, pidFileName),
		DaemonLog: filepath.Join(root, logsDirName, daemonLogName),

		SwitchLock: filepath.Join(root, switchLockName),
	}
}

// Ensure creates the root, backups and logs directories.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Root, p.Backups, p.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
