package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devalexanderdaza/antigravity-agent/internal/config"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "antigravity-agent" {
		t.Errorf("expected Use to be 'antigravity-agent', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if !strings.Contains(RootCmd.Long, "Quick Start") {
		t.Error("expected Long description to contain 'Quick Start' section")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, expected := range []string{
		"backup", "backups", "restore", "switch", "signout", "process",
		"tray", "export", "import", "info", "settings",
	} {
		if !found[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestSubcommandTrees(t *testing.T) {
	tests := map[string][]string{
		"backups":  {"list", "delete", "clear"},
		"process":  {"status", "terminate", "launch"},
		"tray":     {"run", "enable", "disable", "toggle", "stop", "status"},
		"settings": {"show", "set"},
	}

	for parent, children := range tests {
		t.Run(parent, func(t *testing.T) {
			cmd, _, err := RootCmd.Find([]string{parent})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", parent, err)
			}
			names := make(map[string]bool)
			for _, c := range cmd.Commands() {
				names[c.Name()] = true
			}
			for _, child := range children {
				if !names[child] {
					t.Errorf("expected '%s %s' to be registered", parent, child)
				}
			}
		})
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"config-dir", "db", "verbose", "yes"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestAgentPaths(t *testing.T) {
	oldConfigDir := configDir
	defer func() { configDir = oldConfigDir }()

	configDir = t.TempDir()
	paths, err := agentPaths()
	if err != nil {
		t.Fatalf("agentPaths() error = %v, want nil", err)
	}
	if paths.Root != configDir {
		t.Errorf("agentPaths().Root = %q, want %q", paths.Root, configDir)
	}
	if paths.Backups != filepath.Join(configDir, "antigravity-accounts") {
		t.Errorf("agentPaths().Backups = %q", paths.Backups)
	}

	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	configDir = ""
	paths, err = agentPaths()
	if err != nil {
		t.Fatalf("agentPaths() error = %v, want nil", err)
	}
	if paths.Root != home {
		t.Errorf("agentPaths().Root = %q, want %s from %s", paths.Root, home, config.HomeEnv)
	}
}

func TestTrayDaemonArgs(t *testing.T) {
	oldConfigDir, oldDBPath := configDir, dbPath
	defer func() { configDir, dbPath = oldConfigDir, oldDBPath }()

	configDir, dbPath = "/tmp/agent", ""
	got := strings.Join(trayDaemonArgs(), " ")
	if got != "tray run --daemon-child --config-dir /tmp/agent" {
		t.Errorf("trayDaemonArgs() = %q", got)
	}

	dbPath = "/tmp/state.vscdb"
	got = strings.Join(trayDaemonArgs(), " ")
	if !strings.HasSuffix(got, "--db /tmp/state.vscdb") {
		t.Errorf("trayDaemonArgs() = %q, want --db passed through", got)
	}
}

func TestConfirm(t *testing.T) {
	oldStdin, oldYes := stdin, assumeYes
	defer func() { stdin, assumeYes = oldStdin, oldYes }()

	tests := []struct {
		name  string
		input string
		yes   bool
		want  bool
	}{
		{"yes flag", "", true, true},
		{"y", "y\n", false, true},
		{"YES", "YES\n", false, true},
		{"no", "n\n", false, false},
		{"empty", "\n", false, false},
		{"eof", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdin = strings.NewReader(tt.input)
			assumeYes = tt.yes
			var got bool
			captureStdout(t, func() { got = confirm("Proceed?") })
			if got != tt.want {
				t.Errorf("confirm() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRootCmd_BareInvocation(t *testing.T) {
	oldConfigDir := configDir
	defer func() { configDir = oldConfigDir }()
	configDir = t.TempDir()

	out := captureStdout(t, func() {
		if err := RootCmd.RunE(RootCmd, nil); err != nil {
			t.Errorf("RunE() error = %v, want nil", err)
		}
	})
	if !strings.Contains(out, "antigravity-agent backup") {
		t.Errorf("bare invocation should suggest a first backup, got:\n%s", out)
	}
}

// captureStdout replaces os.Stdout with a pipe during f(), then restores it
// and returns all bytes written to stdout.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.String()
	}()

	f()

	w.Close()
	return <-done
}
