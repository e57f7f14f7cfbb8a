package main

import (
	"fmt"
	"os"

	"github.com/matsen/retractions/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new retractions repository",
	Long: `Initialize a new retractions repository in the current directory (or RX_ROOT).

Creates:
  .retractions/
  ├── config.json     # Search term, year range, batch size, strategy
  ├── runs/           # One <label>.jsonl snapshot per run
  └── cache/          # Query index (gitignored)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	if config.IsRepository(root) {
		exitWithError(ExitError, "directory already contains a retractions repository")
	}

	if _, err := config.Init(root); err != nil {
		exitWithError(ExitError, "initializing repository: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized retractions repository in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}
