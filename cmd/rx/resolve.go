package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/conflict"
	"github.com/matsen/retractions/internal/reconcile"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

var (
	resolveDryRun   bool
	resolveStrategy string
)

func init() {
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "Show proposed resolution without modifying files")
	resolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "", "Which side wins for records on both sides (default from config; ours is primary)")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [source]",
	Short: "Resolve git merge conflicts in the union or a run",
	Long: `Resolve git merge conflicts in union.jsonl (or a run snapshot) by
reconciling the records of each conflict region on their PubMed ID.

Records from both sides are kept. A record present on both sides keeps the
version chosen by the strategy, with "ours" (HEAD) as the primary, and its
provenance lists the runs of both versions.

Examples:
  rx resolve
  rx resolve --dry-run --human
  rx resolve 2025 --strategy secondary-wins`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

// ResolveResult is the JSON response for rx resolve.
type ResolveResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	*conflict.Resolution
}

func runResolve(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	path := config.UnionPath(repoRoot)
	if len(args) == 1 && args[0] != UnionSource {
		mustValidateLabel(args[0])
		path = config.RunPath(repoRoot, args[0])
	}

	strategy, err := reconcile.ParseStrategy(firstNonEmpty(resolveStrategy, cfg.Strategy))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		exitWithError(ExitDataError, "opening %s: %v", path, err)
	}
	parsed, err := conflict.Parse(f)
	f.Close()
	if err != nil {
		exitWithError(ExitDataError, "parsing %s: %v", path, err)
	}

	if !parsed.HasConflicts() {
		if humanOutput {
			fmt.Printf("No conflicts detected in %s.\n", path)
		} else {
			outputJSON(StatusResponse{Status: "clean", Path: path})
		}
		return nil
	}

	res, err := conflict.Resolve(parsed, reconcile.WithStrategy(strategy))
	if err != nil {
		if errors.Is(err, record.ErrKeyCollision) {
			exitWithError(ExitDataError, "resolving %s: %v", path, err)
		}
		exitWithError(ExitError, "resolving %s: %v", path, err)
	}

	status := "dry_run"
	if !resolveDryRun {
		if err := storage.WriteAll(path, res.Records); err != nil {
			exitWithError(ExitError, "writing resolved file: %v", err)
		}
		status = "resolved"
	}

	if humanOutput {
		printResolveHuman(path, res, resolveDryRun)
	} else {
		outputJSON(ResolveResult{Path: path, Status: status, Resolution: res})
	}
	return nil
}

func printResolveHuman(path string, res *conflict.Resolution, dryRun bool) {
	for _, r := range res.Regions {
		fmt.Printf("lines %d-%d: %d on both sides, %d ours only, %d theirs only\n",
			r.StartLine, r.EndLine, r.Stats.Matched, r.Stats.PrimaryOnly, r.Stats.SecondaryOnly)
		if quietOutput {
			continue
		}
		for _, d := range r.Differences {
			fmt.Printf("  %s %s:\n    ours:   %s\n    theirs: %s\n", d.Identifier, d.Field,
				truncateString(d.PrimaryValue, DiffValueMaxLen), truncateString(d.SecondaryValue, DiffValueMaxLen))
		}
	}
	if dryRun {
		fmt.Printf("\nDry run: %s would hold %d records (%s)\n", path, res.Total, res.Strategy)
		return
	}
	fmt.Printf("\nResolved %s: %d records (%s)\n", path, res.Total, res.Strategy)
}
