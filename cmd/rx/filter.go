package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matsen/retractions/internal/author"
	"github.com/matsen/retractions/internal/export"
	"github.com/matsen/retractions/internal/filter"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

var (
	filterOnlyRun       string
	filterInRun         string
	filterNotInRun      string
	filterPublishedFrom string
	filterPublishedTo   string
	filterNoticeBefore  string
	filterNoticeDOI     bool
	filterOwnDOI        bool
	filterHasNotice     bool
	filterType          string
	filterAuthors       []string
	filterOutput        string
)

func init() {
	filterCmd.Flags().StringVar(&filterOnlyRun, "only-run", "", "Keep records observed in this run and no other")
	filterCmd.Flags().StringVar(&filterInRun, "in-run", "", "Keep records observed in this run")
	filterCmd.Flags().StringVar(&filterNotInRun, "not-in-run", "", "Drop records observed in this run")
	filterCmd.Flags().StringVar(&filterPublishedFrom, "published-from", "", "Keep records published on or after YYYY[-MM[-DD]]")
	filterCmd.Flags().StringVar(&filterPublishedTo, "published-to", "", "Keep records published on or before YYYY[-MM[-DD]]")
	filterCmd.Flags().StringVar(&filterNoticeBefore, "notice-before", "", "Keep records whose notice is dated on or before YYYY[-MM[-DD]]")
	filterCmd.Flags().BoolVar(&filterNoticeDOI, "notice-doi", false, "Keep records whose notice citation is a bare DOI without a date")
	filterCmd.Flags().BoolVar(&filterOwnDOI, "notice-own-doi", false, "Keep records whose notice citation carries the record's own DOI")
	filterCmd.Flags().BoolVar(&filterHasNotice, "has-notice", false, "Keep records linked to a retraction notice")
	filterCmd.Flags().StringVar(&filterType, "type", "", "Keep records with this publication type")
	filterCmd.Flags().StringArrayVarP(&filterAuthors, "author", "a", nil, "Keep records with this author (repeatable, all must match)")
	filterCmd.Flags().StringVarP(&filterOutput, "output", "o", "", "Write matches to a .jsonl or .csv file instead of stdout")
	rootCmd.AddCommand(filterCmd)
}

var filterCmd = &cobra.Command{
	Use:   "filter [source]",
	Short: "Select records from the union or a run",
	Long: `Select records from a source (default "union") that satisfy every given
condition. Date bounds are inclusive; a bare year or month covers the
whole period. Records with an unknown publication year never match a
publication date bound. Notice citations without a date are kept by
--notice-before.

Examples:
  rx filter --only-run 2025
  rx filter --published-from 2020 --published-to 2022 -o recent.csv
  rx filter 2024 --notice-before 2023-06 --human
  rx filter -a "Zhang, Wei" -a Lovelace`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFilter,
}

func runFilter(cmd *cobra.Command, args []string) error {
	source := UnionSource
	if len(args) == 1 {
		source = args[0]
	}

	preds, err := buildPredicates()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	repoRoot := mustFindRepository()
	coll := mustLoadSource(repoRoot, source)
	matched := filter.Apply(coll, preds...)

	if filterOutput != "" {
		if err := writeRecordsFile(filterOutput, matched.Records); err != nil {
			exitWithError(ExitError, "writing %s: %v", filterOutput, err)
		}
		result := FilterResult{Source: coll.Run, Total: len(coll.Records), Matched: len(matched.Records), Output: filterOutput}
		if humanOutput {
			fmt.Printf("Wrote %d of %d records from %s to %s\n", result.Matched, result.Total, result.Source, result.Output)
		} else {
			outputJSON(result)
		}
		return nil
	}

	if humanOutput {
		fmt.Printf("%d of %d records from %s match:\n\n", len(matched.Records), len(coll.Records), coll.Run)
		for i, r := range matched.Records {
			printRecordSummary(i+1, r)
		}
	} else {
		outputJSON(matched.Records)
	}
	return nil
}

// buildPredicates turns the filter flags into predicates.
func buildPredicates() ([]filter.Predicate, error) {
	var preds []filter.Predicate

	if filterOnlyRun != "" {
		preds = append(preds, filter.OnlyInRun(filterOnlyRun))
	}
	if filterInRun != "" {
		preds = append(preds, filter.InRun(filterInRun))
	}
	if filterNotInRun != "" {
		preds = append(preds, filter.Not(filter.InRun(filterNotInRun)))
	}

	if filterPublishedFrom != "" || filterPublishedTo != "" {
		from, err := parseDateBound(filterPublishedFrom, false)
		if err != nil {
			return nil, fmt.Errorf("--published-from: %w", err)
		}
		to, err := parseDateBound(filterPublishedTo, true)
		if err != nil {
			return nil, fmt.Errorf("--published-to: %w", err)
		}
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			return nil, fmt.Errorf("--published-to is before --published-from")
		}
		preds = append(preds, filter.PublishedBetween(from, to))
	}

	if filterNoticeBefore != "" {
		cutoff, err := parseDateBound(filterNoticeBefore, true)
		if err != nil {
			return nil, fmt.Errorf("--notice-before: %w", err)
		}
		preds = append(preds, filter.NoticeOnOrBefore(cutoff))
	}

	if filterNoticeDOI {
		preds = append(preds, filter.NoticeHasDOI())
	}
	if filterOwnDOI {
		preds = append(preds, filter.NoticeDOIMatchesPublication)
	}
	if filterHasNotice {
		preds = append(preds, filter.HasNotice())
	}
	if filterType != "" {
		preds = append(preds, filter.HasPublicationType(filterType))
	}

	if len(filterAuthors) > 0 {
		queries := make([]author.Query, 0, len(filterAuthors))
		for _, a := range filterAuthors {
			q := author.ParseQuery(a)
			if q.IsZero() {
				return nil, fmt.Errorf("--author: empty author name")
			}
			queries = append(queries, q)
		}
		preds = append(preds, filter.ByAuthors(queries...))
	}

	return preds, nil
}

// parseDateBound parses YYYY, YYYY-MM or YYYY-MM-DD. An upper bound covers
// the whole year or month given, so "2020" as an upper bound is 2020-12-31.
// The empty string yields the zero time (an open bound).
func parseDateBound(s string, upper bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	layouts := []struct {
		layout string
		end    func(time.Time) time.Time
	}{
		{"2006-01-02", func(t time.Time) time.Time { return t }},
		{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, -1) }},
		{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, -1) }},
	}
	for _, l := range layouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if upper {
			t = l.end(t)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY, YYYY-MM or YYYY-MM-DD)", s)
}

// writeRecordsFile writes records as CSV when path ends in .csv, else JSONL.
func writeRecordsFile(path string, recs []record.RetractionRecord) error {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return storage.WriteAll(path, recs)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
