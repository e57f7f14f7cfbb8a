package main

import (
	"fmt"
	"path/filepath"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/git"
	"github.com/spf13/cobra"
)

var diffSince string

func init() {
	diffCmd.Flags().StringVar(&diffSince, "since", "HEAD", "Commit to compare against (SHA, HEAD~N, branch, tag)")
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff [source]",
	Short: "Show records added, dropped or changed since a commit",
	Long: `Compare a source (default "union") in the working tree with the same file
at a git commit. Useful for reviewing a fresh reconcile before committing.

Examples:
  rx diff
  rx diff 2025 --since HEAD~3 --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	if !git.IsGitRepo(repoRoot) {
		exitWithError(ExitConfigError, "%s: %v", repoRoot, git.ErrNotGitRepo)
	}

	path := config.UnionPath(repoRoot)
	if len(args) == 1 && args[0] != UnionSource {
		mustValidateLabel(args[0])
		path = config.RunPath(repoRoot, args[0])
	}
	rel, err := filepath.Rel(repoRoot, path)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if !git.IsFileTracked(repoRoot, rel) {
		exitWithError(ExitConfigError, "%s: %v", rel, git.ErrFileNotTracked)
	}

	cmp, err := git.DiffSince(repoRoot, diffSince, rel)
	if err != nil {
		exitWithError(ExitError, "diffing %s: %v", rel, err)
	}

	if humanOutput {
		fmt.Printf("%s since %s\n", rel, diffSince)
		fmt.Printf("  added:   %d\n  dropped: %d\n  changed: %d\n", len(cmp.LaterOnly), len(cmp.EarlierOnly), len(cmp.Changed))
		if !quietOutput {
			printIDList("added", cmp.LaterOnly)
			printIDList("dropped", cmp.EarlierOnly)
			printIDList("changed", cmp.Changed)
		}
	} else {
		outputJSON(cmp)
	}
	return nil
}
