package main

import (
	"errors"
	"fmt"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/reconcile"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

var (
	reconcileStrategy  string
	reconcileOntoUnion bool
	reconcileDryRun    bool
)

func init() {
	reconcileCmd.Flags().StringVar(&reconcileStrategy, "strategy", "", "Field precedence for matched records: primary-wins, secondary-wins, most-recent-wins, earliest-wins (default from config)")
	reconcileCmd.Flags().BoolVar(&reconcileOntoUnion, "onto-union", false, "Start from the existing union instead of an empty one")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Report the result without writing union.jsonl")
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <label> [<label>...]",
	Short: "Merge runs into the union dataset",
	Long: `Merge runs into a single union keyed by PubMed ID and write it to
.retractions/union.jsonl.

Runs are folded left to right: the first run is the primary, each following
run joins the union of all runs before it. Every union record lists the runs
it was observed in. When a record appears in more than one run, the strategy
decides whose fields are kept; field-level differences are reported either
way.

Examples:
  rx reconcile 2024 2025
  rx reconcile 2026 --onto-union --strategy secondary-wins`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	strategy, err := reconcile.ParseStrategy(firstNonEmpty(reconcileStrategy, cfg.Strategy))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	var runs []record.Collection
	if reconcileOntoUnion {
		if union, ok := readUnion(repoRoot); ok {
			runs = append(runs, union)
		}
	}
	for _, label := range args {
		runs = append(runs, mustLoadSource(repoRoot, label))
	}

	res, err := reconcile.Fold(runs, reconcile.WithStrategy(strategy))
	if err != nil {
		var collision *reconcile.KeyCollisionError
		if errors.As(err, &collision) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "reconciling: %v", err)
	}

	path := config.UnionPath(repoRoot)
	status := "reconciled"
	if reconcileDryRun {
		status = "dry_run"
	} else if err := storage.WriteAll(path, res.Union.Records); err != nil {
		exitWithError(ExitError, "writing union: %v", err)
	}

	result := ReconcileResult{
		Status:      status,
		Label:       res.Union.Run,
		Strategy:    res.Strategy,
		Path:        path,
		Records:     len(res.Union.Records),
		Stats:       res.Stats,
		Differences: res.Differences,
	}
	if result.Differences == nil {
		result.Differences = []reconcile.Difference{}
	}

	if humanOutput {
		printReconcileHuman(result)
	} else {
		outputJSON(result)
	}
	return nil
}

func printReconcileHuman(r ReconcileResult) {
	if !quietOutput {
		for _, d := range r.Differences {
			fmt.Printf("%s %s:\n  - %s\n  + %s\n", d.Identifier, d.Field,
				truncateString(d.PrimaryValue, DiffValueMaxLen), truncateString(d.SecondaryValue, DiffValueMaxLen))
		}
		if len(r.Differences) > 0 {
			fmt.Println()
		}
	}
	fmt.Printf("Union %s (%s): %d records\n", r.Label, r.Strategy, r.Records)
	fmt.Printf("  matched %d, primary only %d, secondary only %d, unkeyed %d\n",
		r.Stats.Matched, r.Stats.PrimaryOnly, r.Stats.SecondaryOnly, r.Stats.Unkeyed)
	fmt.Printf("  %d field differences\n", len(r.Differences))
	if r.Status == "reconciled" {
		fmt.Printf("Wrote %s\n", r.Path)
	}
}
