package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/output"
	"github.com/devalexanderdaza/antigravity-agent/internal/process"
)

var (
	processCmd = &cobra.Command{
		Use:   "process",
		Short: "Inspect, stop or start Antigravity",
	}

	processStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "List running Antigravity processes",
		Args:  cobra.NoArgs,
		RunE:  runProcessStatus,
	}

	processTerminateCmd = &cobra.Command{
		Use:   "terminate",
		Short: "Stop every Antigravity process",
		Args:  cobra.NoArgs,
		RunE:  runProcessTerminate,
	}

	processLaunchCmd = &cobra.Command{
		Use:   "launch",
		Short: "Start Antigravity",
		Long: `Start Antigravity from the configured executable path, the
platform's install locations or the command on PATH, in that order.`,
		Args: cobra.NoArgs,
		RunE: runProcessLaunch,
	}
)

func init() {
	processCmd.AddCommand(processStatusCmd, processTerminateCmd, processLaunchCmd)

	RootCmd.AddCommand(processCmd)
}

func runProcessStatus(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	matched, err := agent.Processes.Matching(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list processes: %w", err)
	}
	fmt.Print(output.RenderProcessTable(matched))
	return nil
}

func runProcessTerminate(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	spinner := output.NewSpinner("Stopping Antigravity")
	spinner.Start()
	report, err := agent.Processes.TerminateAll(commandContext(cmd))
	spinner.Stop()

	if errors.Is(err, process.ErrNoProcessFound) {
		fmt.Println("Antigravity was not running.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to terminate Antigravity: %w", err)
	}
	fmt.Print(output.RenderTerminateReport(report))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d process(es) could not be terminated", len(report.Failed))
	}
	return nil
}

func runProcessLaunch(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	desc, err := agent.Launcher.Launch(commandContext(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("✓ Started Antigravity via %s %s", desc.Method, desc.Target)
	if desc.PID > 0 {
		fmt.Printf(" (pid %d)", desc.PID)
	}
	fmt.Println()
	return nil
}
