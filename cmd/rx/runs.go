package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

// UnionSource names the reconciled union wherever a run label is accepted.
const UnionSource = "union"

func init() {
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs and the union",
	Long: `List every run snapshot under .retractions/runs with its record and issue
counts, followed by the reconciled union if one exists.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	labels, err := storage.ListRuns(config.RunsPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "listing runs: %v", err)
	}

	result := RunsResult{Runs: make([]RunInfo, 0, len(labels))}
	for _, label := range labels {
		recs, err := storage.ReadAll(config.RunPath(repoRoot, label))
		if err != nil {
			exitWithError(ExitDataError, "reading run %s: %v", label, err)
		}
		issues, err := storage.ReadIssues(config.IssuesPath(repoRoot, label))
		if err != nil {
			exitWithError(ExitDataError, "reading issues of run %s: %v", label, err)
		}
		result.Runs = append(result.Runs, RunInfo{Label: label, Records: len(recs), Issues: len(issues)})
	}

	if union, ok := readUnion(repoRoot); ok {
		result.Union = &RunInfo{Label: union.Run, Records: len(union.Records)}
	}

	if humanOutput {
		if len(result.Runs) == 0 {
			fmt.Println("No runs yet. Use 'rx fetch <label>' or 'rx extract <label> <file.xml>'.")
		}
		for _, r := range result.Runs {
			fmt.Printf("%-20s %7d records  %5d issues\n", r.Label, r.Records, r.Issues)
		}
		if result.Union != nil {
			fmt.Printf("\nunion (%s): %d records\n", result.Union.Label, result.Union.Records)
		}
	} else {
		outputJSON(result)
	}
	return nil
}

// readUnion loads union.jsonl, labeled by every run its records came from.
func readUnion(repoRoot string) (record.Collection, bool) {
	path := config.UnionPath(repoRoot)
	if !fileExists(path) {
		return record.Collection{}, false
	}
	recs, err := storage.ReadAll(path)
	if err != nil {
		exitWithError(ExitDataError, "reading union: %v", err)
	}
	return record.Collection{Run: unionRunLabel(recs), Records: recs}, true
}

// unionRunLabel joins the provenance of recs into a "2024+2025" label.
func unionRunLabel(recs []record.RetractionRecord) string {
	sets := make([][]string, 0, len(recs))
	for _, r := range recs {
		if runs := r.Provenance(); runs != nil {
			sets = append(sets, runs)
		}
	}
	if label := strings.Join(record.UnionRuns(sets...), "+"); label != "" {
		return label
	}
	return UnionSource
}

// mustLoadSource loads a run by label, or the union when name is "union".
func mustLoadSource(repoRoot, name string) record.Collection {
	if name == UnionSource {
		union, ok := readUnion(repoRoot)
		if !ok {
			exitWithError(ExitDataError, "no union yet; run 'rx reconcile' first")
		}
		return union
	}

	mustValidateLabel(name)
	path := config.RunPath(repoRoot, name)
	if _, err := os.Stat(path); err != nil {
		exitWithError(ExitDataError, "unknown run %q (see 'rx runs')", name)
	}
	coll, err := storage.ReadCollection(path, name)
	if err != nil {
		exitWithError(ExitDataError, "reading run %s: %v", name, err)
	}
	return coll
}

// saveRun writes a run snapshot and its issue file.
func saveRun(repoRoot string, coll record.Collection, issues []record.Issue) RunResult {
	path := config.RunPath(repoRoot, coll.Run)
	if err := storage.WriteAll(path, coll.Records); err != nil {
		exitWithError(ExitError, "writing run %s: %v", coll.Run, err)
	}
	issuesPath := config.IssuesPath(repoRoot, coll.Run)
	if err := storage.WriteIssues(issuesPath, issues); err != nil {
		exitWithError(ExitError, "writing issues of run %s: %v", coll.Run, err)
	}
	return RunResult{
		Status:     "written",
		Run:        coll.Run,
		Path:       path,
		Records:    len(coll.Records),
		IssuesPath: issuesPath,
		Issues:     nonNilIssues(issues),
	}
}

// printRunResultHuman summarizes a written run.
func printRunResultHuman(res RunResult) {
	printIssuesHuman(res.Issues)
	fmt.Printf("Wrote %d records to run %s (%s)\n", res.Records, res.Run, res.Path)
}
