package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/config"
	"github.com/devalexanderdaza/antigravity-agent/internal/di"
	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
	"github.com/devalexanderdaza/antigravity-agent/internal/output"
	"github.com/devalexanderdaza/antigravity-agent/internal/watcher"
)

var (
	trayDaemonChild bool

	trayCmd = &cobra.Command{
		Use:   "tray",
		Short: "Control the tray icon",
		Long: `The tray icon runs in a background daemon. Its menu lists saved
accounts for quick switching.

The system_tray_enabled setting decides whether the daemon runs: 'enable'
saves it and starts the daemon, 'disable' saves it and stops the daemon.`,
	}

	trayRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the tray in this terminal (Ctrl+C to stop)",
		Args:  cobra.NoArgs,
		RunE:  runTrayRun,
	}

	trayEnableCmd = &cobra.Command{
		Use:   "enable",
		Short: "Enable the tray and start its daemon",
		Args:  cobra.NoArgs,
		RunE:  runTrayEnable,
	}

	trayDisableCmd = &cobra.Command{
		Use:   "disable",
		Short: "Disable the tray and stop its daemon",
		Args:  cobra.NoArgs,
		RunE:  runTrayDisable,
	}

	trayToggleCmd = &cobra.Command{
		Use:   "toggle",
		Short: "Flip the tray setting",
		Args:  cobra.NoArgs,
		RunE:  runTrayToggle,
	}

	trayStopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the tray daemon without changing the setting",
		Args:  cobra.NoArgs,
		RunE:  runTrayStop,
	}

	trayStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the tray setting and daemon state",
		Args:  cobra.NoArgs,
		RunE:  runTrayStatus,
	}
)

func init() {
	trayRunCmd.Flags().BoolVar(&trayDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	trayRunCmd.Flags().MarkHidden("daemon-child")

	trayCmd.AddCommand(trayRunCmd, trayEnableCmd, trayDisableCmd, trayToggleCmd, trayStopCmd, trayStatusCmd)

	RootCmd.AddCommand(trayCmd)
}

func runTrayRun(cmd *cobra.Command, args []string) error {
	opts, err := agentOptions()
	if err != nil {
		return err
	}
	paths := opts.Paths
	if err := paths.Ensure(); err != nil {
		return fmt.Errorf("failed to create agent directory: %w", err)
	}

	// The daemon child finds its own PID in the file its parent wrote.
	if !trayDaemonChild {
		running, err := watcher.IsDaemonRunning(paths.PIDFile)
		if err != nil {
			return fmt.Errorf("failed to check daemon status: %w", err)
		}
		if running {
			return fmt.Errorf("tray already running (PID file: %s)", paths.PIDFile)
		}
	}

	d, cleanup, err := di.InitDaemon(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	settings := d.Agent.Settings
	if !settings.SystemTrayEnabled {
		fmt.Println("The tray is disabled. Run 'antigravity-agent tray enable' to turn it on.")
		return nil
	}
	if !trayDaemonChild && !settings.SilentStartEnabled {
		fmt.Println("Tray running (press Ctrl+C to stop)")
		if settings.API.Enabled {
			fmt.Printf("  Control API: http://%s\n", settings.API.Address)
		}
		fmt.Printf("  Log file: %s\n", paths.Logs)
	}

	return watcher.RunDaemon(paths.PIDFile, func(stop <-chan struct{}) error {
		return serveTray(d, stop)
	})
}

// serveTray runs the tray event loop until stop is closed, the icon is
// removed or the control API fails.
func serveTray(d *di.Daemon, stop <-chan struct{}) error {
	logger := d.Agent.Logger
	settings := d.Agent.Settings

	if err := d.Watcher.Start(); err != nil {
		return err
	}
	defer d.Watcher.Stop()

	apiErr := make(chan error, 1)
	if settings.API.Enabled {
		go func() {
			apiErr <- d.API.Listen(settings.API.Address)
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := d.API.Shutdown(ctx); err != nil {
				logger.Warnf(logging.TypeAPI, "control API shutdown: %v", err)
			}
		}()
	}

	failed := make(chan error, 1)
	exited := make(chan struct{})
	onReady := func() {
		if err := d.Tray.Sync(); err != nil {
			logger.Errorf(logging.TypeTray, "failed to show tray: %v", err)
			failed <- err
			d.Backend.Stop()
			return
		}
		logger.Infof(logging.TypeTray, "tray ready")

		go func() {
			select {
			case <-stop:
				d.Backend.Stop()
			case err := <-apiErr:
				logger.Errorf(logging.TypeAPI, "control API stopped: %v", err)
				failed <- fmt.Errorf("control API stopped: %w", err)
				d.Backend.Stop()
			case <-exited:
			}
		}()
	}
	d.Backend.Run(onReady, func() { close(exited) })

	logger.Infof(logging.TypeTray, "tray stopped")
	select {
	case err := <-failed:
		return err
	default:
		return nil
	}
}

func trayDaemonArgs() []string {
	return append([]string{"tray", "run", "--daemon-child"}, globalArgs()...)
}

func startTrayDaemon(paths config.Paths) error {
	running, err := watcher.IsDaemonRunning(paths.PIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Println("Tray daemon already running")
		return nil
	}
	if err := paths.Ensure(); err != nil {
		return fmt.Errorf("failed to create agent directory: %w", err)
	}

	spinner := output.NewSpinner("Starting tray daemon")
	spinner.Start()
	pid, err := watcher.StartDaemon(paths.PIDFile, paths.DaemonLog, trayDaemonArgs()...)
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ Tray daemon started (PID %d)", pid))
	fmt.Printf("  PID file: %s\n", paths.PIDFile)
	fmt.Printf("  Log file: %s\n", paths.DaemonLog)
	return nil
}

func stopTrayDaemon(paths config.Paths) error {
	spinner := output.NewSpinner("Stopping tray daemon")
	spinner.Start()
	err := watcher.StopDaemon(paths.PIDFile)
	if errors.Is(err, watcher.ErrDaemonNotRunning) {
		spinner.StopWithMessage("Tray daemon is not running")
		return nil
	}
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Tray daemon stopped")
	return nil
}

func setTrayEnabled(enabled bool) error {
	paths, err := agentPaths()
	if err != nil {
		return err
	}
	if err := config.NewStore(paths.Settings).SetTrayEnabled(enabled); err != nil {
		return fmt.Errorf("failed to save tray setting: %w", err)
	}
	if enabled {
		fmt.Println("✓ Tray enabled")
		return startTrayDaemon(paths)
	}
	fmt.Println("✓ Tray disabled")
	return stopTrayDaemon(paths)
}

func runTrayEnable(cmd *cobra.Command, args []string) error {
	return setTrayEnabled(true)
}

func runTrayDisable(cmd *cobra.Command, args []string) error {
	return setTrayEnabled(false)
}

func runTrayToggle(cmd *cobra.Command, args []string) error {
	paths, err := agentPaths()
	if err != nil {
		return err
	}
	enabled, err := config.NewStore(paths.Settings).TrayEnabled()
	if err != nil {
		return fmt.Errorf("failed to read tray setting: %w", err)
	}
	return setTrayEnabled(!enabled)
}

func runTrayStop(cmd *cobra.Command, args []string) error {
	paths, err := agentPaths()
	if err != nil {
		return err
	}
	return stopTrayDaemon(paths)
}

func runTrayStatus(cmd *cobra.Command, args []string) error {
	paths, err := agentPaths()
	if err != nil {
		return err
	}
	enabled, err := config.NewStore(paths.Settings).TrayEnabled()
	if err != nil {
		return fmt.Errorf("failed to read tray setting: %w", err)
	}
	running, err := watcher.IsDaemonRunning(paths.PIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if enabled {
		fmt.Println("Tray: enabled")
	} else {
		fmt.Println("Tray: disabled")
	}
	if !running {
		fmt.Println("Daemon: stopped")
		return nil
	}
	pid, err := watcher.ReadPIDFile(paths.PIDFile)
	if err != nil {
		fmt.Println("Daemon: running")
		return nil
	}
	fmt.Printf("Daemon: running (PID %d)\n", pid)
	return nil
}
