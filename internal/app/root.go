package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/config"
	"github.com/devalexanderdaza/antigravity-agent/internal/di"
)

var (
	configDir string
	dbPath    string
	verbose   bool
	assumeYes bool

	// RootCmd is the root command for antigravity-agent
	RootCmd = &cobra.Command{
		Use:   "antigravity-agent",
		Short: "Switch between Antigravity accounts",
		Long: `antigravity-agent saves the signed-in Antigravity account to a local
snapshot and restores saved accounts on demand, restarting Antigravity
around each change.

Quick Start:
  1. Sign in to Antigravity
  2. antigravity-agent backup
  3. antigravity-agent signout     # sign in with the next account, repeat
  4. antigravity-agent switch <account>

Features:
  • One snapshot per account, stored as JSON
  • Sign out and switch workflows that stop and relaunch Antigravity
  • Optional tray icon with quick-switch menu
  • Local control API for scripts and launchers

Examples:
  # List saved accounts
  antigravity-agent backups list

  # Switch account
  antigravity-agent switch alice@example.com

  # Show the tray icon
  antigravity-agent tray enable`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := agentPaths()
			if err != nil {
				return err
			}
			fmt.Println("antigravity-agent: Antigravity account switcher")
			fmt.Println()
			if _, err := os.Stat(paths.Backups); os.IsNotExist(err) {
				fmt.Println("Run 'antigravity-agent backup' while signed in to save your first account.")
			} else {
				fmt.Println("Tip: Run 'antigravity-agent backups list' to see saved accounts.")
				fmt.Println("     Run 'antigravity-agent switch <account>' to change account.")
			}
			fmt.Println("Run 'antigravity-agent --help' for all commands.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "agent directory (default: <user config dir>/.antigravity-agent)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Antigravity state database (default: discovered per platform)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr as well as the log file")
	RootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// agentPaths returns the agent's file layout, honoring --config-dir.
func agentPaths() (config.Paths, error) {
	root := configDir
	if root == "" {
		dir, err := config.Dir()
		if err != nil {
			return config.Paths{}, fmt.Errorf("failed to locate agent directory: %w", err)
		}
		root = dir
	}
	return config.PathsFor(root), nil
}

func agentOptions() (di.Options, error) {
	paths, err := agentPaths()
	if err != nil {
		return di.Options{}, err
	}
	return di.Options{Paths: paths, DBPath: dbPath, Verbose: verbose}, nil
}

// openAgent builds the command object graph. The returned func releases it.
func openAgent() (*di.Agent, func(), error) {
	opts, err := agentOptions()
	if err != nil {
		return nil, nil, err
	}
	agent, cleanup, err := di.InitAgent(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return agent, cleanup, nil
}

// globalArgs returns the persistent flags to pass to a re-executed child.
func globalArgs() []string {
	var args []string
	if configDir != "" {
		args = append(args, "--config-dir", configDir)
	}
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	return args
}
