package main

import (
	"fmt"
	"strings"

	"github.com/matsen/retractions/internal/reconcile"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(compareCmd)
}

var compareCmd = &cobra.Command{
	Use:   "compare <earlier> <later>",
	Short: "Show records added, dropped or changed between two runs",
	Long: `Compare two runs (or a run and "union") by PubMed ID.

Reports ids present only in the earlier run, only in the later run, and
ids present in both whose content changed.

Examples:
  rx compare 2024 2025
  rx compare union 2026 --human`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	earlier := mustLoadSource(repoRoot, args[0])
	later := mustLoadSource(repoRoot, args[1])

	cmp := reconcile.Compare(earlier, later)

	if humanOutput {
		fmt.Printf("%s -> %s\n", cmp.Earlier, cmp.Later)
		fmt.Printf("  only in %s: %d\n", cmp.Earlier, len(cmp.EarlierOnly))
		fmt.Printf("  only in %s: %d\n", cmp.Later, len(cmp.LaterOnly))
		fmt.Printf("  in both:    %d (%d changed)\n", len(cmp.Both), len(cmp.Changed))
		if !quietOutput {
			printIDList("dropped", cmp.EarlierOnly)
			printIDList("added", cmp.LaterOnly)
			printIDList("changed", cmp.Changed)
		}
	} else {
		outputJSON(cmp)
	}
	return nil
}

func printIDList(heading string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Printf("\n%s:\n  %s\n", heading, wrapText(strings.Join(ids, " "), TextWrapWidth, "  "))
}
