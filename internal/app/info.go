package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/output"
	"github.com/devalexanderdaza/antigravity-agent/internal/platform"
	"github.com/devalexanderdaza/antigravity-agent/internal/watcher"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show platform, paths and the signed-in account",
	Long: `Show what the agent detected on this machine:

  • Platform and agent directory
  • Antigravity data directory and state database
  • Antigravity executable used by 'process launch'
  • Whether Antigravity is running and who is signed in
  • Tray setting and daemon status`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	paths := agent.Options.Paths
	report := output.HostReport{
		Host:        platform.HostInfo(),
		ConfigDir:   paths.Root,
		SnapshotDir: paths.Backups,
		TrayEnabled: agent.Settings.SystemTrayEnabled,
	}

	if agent.Options.DBPath == "" {
		report.DataDir, report.DataDirErr = agent.Policy.ResolveDataDir(agent.Settings.Antigravity.DataPath)
	}
	if path, err := agent.StateDBPath(); err == nil {
		report.StateDB = path
		_, statErr := os.Stat(path)
		report.StateDBFound = statErr == nil
	}
	if exe, ok := agent.Launcher.Detect(); ok {
		report.Executable = exe
	}

	if ids, err := agent.Snapshots.IDs(); err == nil {
		report.Accounts = len(ids)
	}
	report.Active = activeAccount(agent)

	running, err := agent.Processes.IsRunning(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to check Antigravity process: %w", err)
	}
	report.Running = running

	report.TrayRunning, _ = watcher.IsDaemonRunning(paths.PIDFile)

	fmt.Print(output.RenderHostReport(report))
	return nil
}
