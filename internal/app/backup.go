package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/di"
	"github.com/devalexanderdaza/antigravity-agent/internal/output"
	"github.com/devalexanderdaza/antigravity-agent/internal/snapshots"
	"github.com/devalexanderdaza/antigravity-agent/internal/store"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
)

var (
	backupAccount string

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Save the signed-in account",
		Long: `Save the account currently signed in to Antigravity as a snapshot.

The account is read from the state database unless --account is given.
An existing snapshot for the same account is overwritten. Antigravity must
not be running.`,
		Example: `  antigravity-agent backup
  antigravity-agent backup --account alice@example.com`,
		Args: cobra.NoArgs,
		RunE: runBackup,
	}
)

func init() {
	backupCmd.Flags().StringVar(&backupAccount, "account", "", "account identifier to save under (default: signed-in account)")

	RootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := agent.Switcher.Capture(commandContext(cmd), backupAccount)
	if err != nil {
		if errors.Is(err, switcher.ErrTargetRunning) {
			return fmt.Errorf("%w\n\nRun 'antigravity-agent process terminate' or use 'antigravity-agent signout'", err)
		}
		return fmt.Errorf("failed to save account: %w", err)
	}

	if res.Overwritten {
		fmt.Printf("✓ Updated account %s\n", res.AccountID)
	} else {
		fmt.Printf("✓ Saved account %s\n", res.AccountID)
	}
	fmt.Printf("  Snapshot: %s\n", res.Name)
	return nil
}

// activeAccount returns the signed-in account, or "" when the state
// database is unavailable or nobody is signed in.
func activeAccount(agent *di.Agent) string {
	path, err := agent.StateDBPath()
	if err != nil {
		return ""
	}
	kv, err := store.OpenReadOnly(path)
	if err != nil {
		return ""
	}
	defer kv.Close()

	id, err := agent.Snapshots.ActiveIdentity(kv)
	if err != nil {
		return ""
	}
	return id
}

var (
	backupsCmd = &cobra.Command{
		Use:   "backups",
		Short: "Manage saved accounts",
	}

	backupsListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved accounts, newest first",
		Args:    cobra.NoArgs,
		RunE:    runBackupsList,
	}

	backupsDeleteCmd = &cobra.Command{
		Use:     "delete <account>...",
		Aliases: []string{"rm"},
		Short:   "Delete saved accounts",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runBackupsDelete,
	}

	backupsClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved account",
		Args:  cobra.NoArgs,
		RunE:  runBackupsClear,
	}
)

func init() {
	backupsCmd.AddCommand(backupsListCmd, backupsDeleteCmd, backupsClearCmd)

	RootCmd.AddCommand(backupsCmd)
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := agent.Snapshots.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	fmt.Print(output.RenderAccountTable(entries, activeAccount(agent)))
	return nil
}

func runBackupsDelete(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	for _, id := range args {
		if !agent.Snapshots.Exists(id) {
			return fmt.Errorf("%w: %s", snapshots.ErrSnapshotNotFound, id)
		}
	}
	if !confirm(fmt.Sprintf("Delete %d saved account(s)?", len(args))) {
		fmt.Println("Cancelled.")
		return nil
	}

	for _, id := range args {
		if err := agent.Snapshots.Delete(id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		fmt.Printf("✓ Deleted %s\n", id)
	}
	return nil
}

func runBackupsClear(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	ids, err := agent.Snapshots.IDs()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No saved accounts.")
		return nil
	}
	if !confirm(fmt.Sprintf("Delete all %d saved accounts?", len(ids))) {
		fmt.Println("Cancelled.")
		return nil
	}

	n, err := agent.Snapshots.ClearAll()
	if err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}
	fmt.Printf("✓ Deleted %d saved account(s)\n", n)
	return nil
}
