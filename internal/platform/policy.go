// Package platform selects the per-OS data locations, install paths and
// process patterns for Antigravity.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/devalexanderdaza/antigravity-agent/internal/process"
	"github.com/devalexanderdaza/antigravity-agent/internal/store"
)

// ErrDataDirNotFound is returned when no Antigravity data directory exists.
var ErrDataDirNotFound = errors.New("Antigravity data directory not found")

// Env captures the host directories a Policy is derived from.
type Env struct {
	GOOS            string
	Home            string
	ConfigDir       string // %APPDATA%, ~/Library/Application Support, $XDG_CONFIG_HOME
	DataDir         string // ~/Library/Application Support, $XDG_DATA_HOME
	LocalAppData    string
	ProgramFiles    string
	ProgramFilesX86 string
}

// CurrentEnv reads Env from the running host.
func CurrentEnv() Env {
	env := Env{GOOS: runtime.GOOS}
	env.Home, _ = os.UserHomeDir()
	env.ConfigDir, _ = os.UserConfigDir()

	switch runtime.GOOS {
	case "darwin":
		env.DataDir = env.ConfigDir
	case "windows":
		env.LocalAppData = os.Getenv("LOCALAPPDATA")
		env.ProgramFiles = os.Getenv("ProgramFiles")
		env.ProgramFilesX86 = os.Getenv("ProgramFiles(x86)")
	default:
		env.DataDir = os.Getenv("XDG_DATA_HOME")
		if env.DataDir == "" && env.Home != "" {
			env.DataDir = filepath.Join(env.Home, ".local", "share")
		}
	}
	return env
}

// Policy is everything OS-specific the agent needs to find, stop and start
// Antigravity.
type Policy struct {
	OS              string
	DataDirs        []string
	ExecutablePaths []string
	Commands        []string
	Patterns        []process.Pattern
	Exclude         []process.Pattern
}

// Current returns the policy for the running host.
func Current() Policy {
	return For(CurrentEnv())
}

func globalStorage(base string) string {
	return filepath.Join(base, "Antigravity", "User", "globalStorage")
}

// excludeSelf keeps the agent and its tray daemon out of the match set. Only
// the process name is compared: Antigravity may well be opened on a folder
// called antigravity-agent.
var excludeSelf = []process.Pattern{
	process.Exact("antigravity-agent"),
	process.Exact("antigravity-agent.exe"),
}

// For builds the policy for env.GOOS. Candidates whose base directory is
// unknown are left out.
func For(env Env) Policy {
	p := Policy{OS: env.GOOS, Exclude: excludeSelf}

	addDir := func(base string) {
		if base != "" {
			p.DataDirs = append(p.DataDirs, globalStorage(base))
		}
	}
	addPath := func(elem ...string) {
		if elem[0] != "" {
			p.ExecutablePaths = append(p.ExecutablePaths, filepath.Join(elem...))
		}
	}

	switch env.GOOS {
	case "windows":
		addDir(env.ConfigDir)
		addPath(env.LocalAppData, "Programs", "Antigravity", "Antigravity.exe")
		addPath(env.Home, "AppData", "Local", "Programs", "Antigravity", "Antigravity.exe")
		addPath(env.Home, "AppData", "Roaming", "Local", "Programs", "Antigravity", "Antigravity.exe")
		addPath(env.ProgramFiles, "Antigravity", "Antigravity.exe")
		addPath(env.ProgramFilesX86, "Antigravity", "Antigravity.exe")
		p.Commands = []string{"Antigravity", "antigravity"}
		p.Patterns = windowsPatterns

	case "darwin":
		addDir(env.DataDir)
		for _, app := range []string{"Antigravity.app", "Antigravity-electron.app", "Antigravity-alpha.app", "Antigravity-beta.app"} {
			addPath("/Applications", app, "Contents", "MacOS", "Antigravity")
			addPath(env.Home, "Applications", app, "Contents", "MacOS", "Antigravity")
		}
		p.Commands = []string{"Antigravity", "antigravity"}
		p.Patterns = darwinPatterns

	case "linux":
		addDir(env.ConfigDir)
		addDir(env.DataDir)
		addPath("/usr/share/antigravity/antigravity")
		addPath("/usr/bin/antigravity")
		addPath("/usr/local/bin/antigravity")
		addPath(env.Home, ".local", "bin", "antigravity")
		addPath(env.Home, "bin", "antigravity")
		addPath("/snap/bin/antigravity")
		addPath(env.Home, "Applications", "Antigravity.AppImage")
		addPath("/var/lib/flatpak/exports/bin/antigravity")
		addPath(env.Home, ".local", "share", "flatpak", "exports", "bin", "antigravity")
		p.Commands = []string{"antigravity", "Antigravity"}
		p.Patterns = linuxPatterns

	default:
		addDir(env.DataDir)
		addDir(env.ConfigDir)
		p.Commands = []string{"antigravity", "Antigravity"}
		p.Patterns = fallbackPatterns
	}

	return p
}

// ResolveDataDir returns custom when it is set, otherwise the first
// candidate data directory that exists.
func (p Policy) ResolveDataDir(custom string) (string, error) {
	if custom != "" {
		info, err := os.Stat(custom)
		if err != nil {
			return "", fmt.Errorf("%w: configured data path %s: %v", ErrDataDirNotFound, custom, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%w: configured data path %s is not a directory", ErrDataDirNotFound, custom)
		}
		return custom, nil
	}

	for _, dir := range p.DataDirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w (checked %v)", ErrDataDirNotFound, p.DataDirs)
}

// StateDBPath returns the location of state.vscdb.
func (p Policy) StateDBPath(customDataDir string) (string, error) {
	dir, err := p.ResolveDataDir(customDataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, store.FileName), nil
}

// Launcher builds a process.Launcher for this policy.
func (p Policy) Launcher(explicitPath string) *process.Launcher {
	return process.NewLauncher(explicitPath, p.ExecutablePaths, p.Commands)
}

// Info summarizes the host for diagnostics.
type Info struct {
	OS       string
	Arch     string
	Hostname string
}

// HostInfo returns the running host's OS, architecture and name.
func HostInfo() Info {
	host, _ := os.Hostname()
	return Info{OS: runtime.GOOS, Arch: runtime.GOARCH, Hostname: host}
}
