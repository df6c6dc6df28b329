package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/output"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
)

var switchCmd = &cobra.Command{
	Use:   "switch <account>",
	Short: "Switch Antigravity to a saved account",
	Long: `Stop Antigravity, restore the saved account and start Antigravity again.

The account must have been saved with 'antigravity-agent backup'.
Nothing is stopped when no snapshot exists for the account.`,
	Example: `  antigravity-agent switch alice@example.com`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSwitch,
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Save the signed-in account, sign out and restart Antigravity",
	Long: `Stop Antigravity, save the signed-in account, remove the account's
keys from the state database and start Antigravity again so another
account can sign in.

Nothing is removed when the signed-in account cannot be determined.`,
	Args: cobra.NoArgs,
	RunE: runSignout,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <account>",
	Short: "Write a saved account into the state database",
	Long: `Restore the saved account without stopping or starting Antigravity.
Antigravity must not be running; use 'switch' to do both.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	RootCmd.AddCommand(switchCmd, signoutCmd, restoreCmd)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)
	return runWorkflow(agent.Switcher, "Switching to "+args[0], func(o *switcher.Orchestrator) (*switcher.Trace, error) {
		return o.SwitchTo(ctx, args[0])
	})
}

func runSignout(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	if !confirm("Stop Antigravity and sign out?") {
		fmt.Println("Cancelled.")
		return nil
	}

	ctx := commandContext(cmd)
	return runWorkflow(agent.Switcher, "Signing out", func(o *switcher.Orchestrator) (*switcher.Trace, error) {
		return o.SignOutAndRelaunch(ctx)
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := agent.Switcher.Restore(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", args[0], err)
	}
	fmt.Print(output.RenderRestoreSummary(summary))
	return nil
}
