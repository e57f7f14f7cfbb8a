package main

import (
	"fmt"
	"os"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/reconcile"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query index from the union",
	Long: `Rebuild the SQLite query index used by 'rx search' and 'rx get'.

The index is built from union.jsonl. Without a union, all runs are merged
in memory (oldest label first, primary wins) and indexed; nothing is
written besides the index.

Use this after 'rx reconcile' or after pulling changes from git.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	var (
		count  int
		source string
		err    error
	)
	if unionPath := config.UnionPath(repoRoot); fileExists(unionPath) {
		source = UnionSource
		count, err = db.RebuildFromJSONL(unionPath)
	} else {
		source = "runs"
		count, err = db.Rebuild(foldAllRuns(repoRoot))
	}
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}
	byRun, err := db.CountByRun()
	if err != nil {
		exitWithError(ExitError, "counting records: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt query index from %s with %d records\n", source, count)
		for _, label := range sortedKeys(byRun) {
			fmt.Printf("  %-20s %d\n", label, byRun[label])
		}
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", Source: source, Records: count, ByRun: byRun})
	}
	return nil
}

// foldAllRuns merges every run in label order with the default strategy.
func foldAllRuns(repoRoot string) []record.RetractionRecord {
	labels, err := storage.ListRuns(config.RunsPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "listing runs: %v", err)
	}
	runs := make([]record.Collection, 0, len(labels))
	for _, label := range labels {
		runs = append(runs, mustLoadSource(repoRoot, label))
	}
	res, err := reconcile.Fold(runs)
	if err != nil {
		exitWithError(ExitDataError, "merging runs: %v", err)
	}
	return res.Union.Records
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
