package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/config"
)

var (
	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or change agent settings",
	}

	settingsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as JSON",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	}

	settingsSetCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: "Change one setting and save it.\n\nKeys:\n  " +
			strings.Join(config.Keys(), "\n  "),
		Example: `  antigravity-agent settings set switch.settle_delay 2s
  antigravity-agent settings set keys.well_known antigravityAuthStatus,jetskiStateSync.agentManagerInitState`,
		Args: cobra.ExactArgs(2),
		RunE: runSettingsSet,
	}
)

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	RootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	paths, err := agentPaths()
	if err != nil {
		return err
	}
	s, err := config.NewStore(paths.Settings).Load()
	if err != nil {
		return err
	}
	data, err := config.Encode(s)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	paths, err := agentPaths()
	if err != nil {
		return err
	}
	key, value := args[0], args[1]

	_, err = config.NewStore(paths.Settings).Update(func(s *config.Settings) error {
		return s.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	fmt.Printf("✓ %s = %s\n", key, value)
	if key == "system_tray_enabled" {
		fmt.Println("  Use 'antigravity-agent tray enable|disable' to also start or stop the tray.")
	}
	return nil
}
