package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	importOverwrite bool

	exportCmd = &cobra.Command{
		Use:     "export <file>",
		Short:   "Write every saved account into one compressed bundle",
		Example: `  antigravity-agent export accounts.agbackup.zst`,
		Args:    cobra.ExactArgs(1),
		RunE:    runExport,
	}

	importCmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Restore saved accounts from a bundle",
		Long: `Read a bundle written by 'export' and save its accounts.
Existing accounts are kept unless --overwrite is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
)

func init() {
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "replace accounts that already exist")

	RootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	path := args[0]
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}

	n, err := agent.Snapshots.Export(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to export accounts: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	fmt.Printf("✓ Exported %d account(s) to %s\n", n, path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	agent, cleanup, err := openAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open bundle: %w", err)
	}
	defer f.Close()

	res, err := agent.Snapshots.Import(f, importOverwrite)
	if err != nil {
		return fmt.Errorf("failed to import accounts: %w", err)
	}

	fmt.Printf("✓ Imported %d account(s)\n", len(res.Imported))
	for _, id := range res.Imported {
		fmt.Printf("  %s\n", id)
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("Skipped %d existing account(s); use --overwrite to replace them:\n", len(res.Skipped))
		for _, id := range res.Skipped {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}
