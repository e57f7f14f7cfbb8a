package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

var (
	searchLimit     int
	searchAuthor    string
	searchJournal   string
	searchYear      string
	searchRun       string
	searchHasNotice bool
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return (0 = all)")
	searchCmd.Flags().StringVarP(&searchAuthor, "author", "a", "", "Filter by author name (prefix match)")
	searchCmd.Flags().StringVar(&searchJournal, "journal", "", "Filter by journal title or abbreviation (substring)")
	searchCmd.Flags().StringVarP(&searchYear, "year", "y", "", "Filter by publication year: 2020, 2018:2022, 2020:, :2022")
	searchCmd.Flags().StringVar(&searchRun, "run", "", "Filter by run the record was observed in")
	searchCmd.Flags().BoolVar(&searchHasNotice, "has-notice", false, "Only records linked to a retraction notice")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed records",
	Long: `Search the query index built by 'rx rebuild'.

The query matches titles, author names and journal titles. Flags narrow
the result further; all conditions must hold.

Examples:
  rx search "stem cell"
  rx search --author Zhang --year 2018:2020
  rx search --journal "Int J Mol Sci" --has-notice --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := storage.Query{
		Author:    searchAuthor,
		Journal:   searchJournal,
		Run:       searchRun,
		HasNotice: searchHasNotice,
	}
	if len(args) == 1 {
		q.Text = args[0]
	}

	var err error
	q.YearFrom, q.YearTo, err = parseYearRange(searchYear)
	if err != nil {
		exitWithError(ExitError, "invalid --year: %v", err)
	}

	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	recs, err := db.Search(q, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	// Empty result is not an error
	if recs == nil {
		recs = []record.RetractionRecord{}
	}

	if humanOutput {
		if len(recs) == 0 {
			fmt.Println("No records found")
		} else {
			fmt.Printf("Found %d records:\n\n", len(recs))
			for i, r := range recs {
				printRecordSummary(i+1, r)
			}
		}
	} else {
		outputJSON(recs)
	}
	return nil
}

// parseYearRange parses "2020", "2018:2022", "2020:" or ":2022". Zero
// means no bound.
func parseYearRange(spec string) (from, to int, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0, nil
	}

	lo, hi, isRange := strings.Cut(spec, ":")
	if !isRange {
		year, err := strconv.Atoi(spec)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid year: %s", spec)
		}
		return year, year, nil
	}

	if lo != "" {
		if from, err = strconv.Atoi(lo); err != nil {
			return 0, 0, fmt.Errorf("invalid start year: %s", lo)
		}
	}
	if hi != "" {
		if to, err = strconv.Atoi(hi); err != nil {
			return 0, 0, fmt.Errorf("invalid end year: %s", hi)
		}
	}
	return from, to, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
