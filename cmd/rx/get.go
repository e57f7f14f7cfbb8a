package main

import (
	"strings"

	"github.com/matsen/retractions/internal/normalize"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

var getFrom string

func init() {
	getCmd.Flags().StringVar(&getFrom, "from", "", "Read from this run or the union instead of the query index")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <pmid|doi>",
	Short: "Get a single record by PubMed ID or DOI",
	Long: `Get a single record by its PubMed ID, or by DOI.

PubMed IDs are looked up in the query index. DOIs, and any lookup with
--from, read the snapshot directly (the union unless --from names a run).

Examples:
  rx get 33441234 --human
  rx get doi:10.3390/ijms22010001
  rx get 33441234 --from 2024`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	id := strings.TrimSpace(args[0])

	var rec *record.RetractionRecord
	if getFrom != "" || looksLikeDOI(id) {
		rec = findInSource(repoRoot, firstNonEmpty(getFrom, UnionSource), id)
	} else {
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		var err error
		rec, err = db.GetByID(id)
		if err != nil {
			exitWithError(ExitError, "getting record: %v", err)
		}
		if rec == nil {
			exitWithError(ExitError, "record not found: %s (run 'rx rebuild' after reconciling)", id)
		}
	}

	if humanOutput {
		printRecordDetail(*rec)
	} else {
		outputJSON(rec)
	}
	return nil
}

// findInSource scans a run or the union for a PubMed ID or DOI.
func findInSource(repoRoot, source, id string) *record.RetractionRecord {
	coll := mustLoadSource(repoRoot, source)

	idx, ok := storage.FindByID(coll.Records, id)
	if !ok && looksLikeDOI(id) {
		idx, ok = storage.FindByExternalID(coll.Records, normalize.CanonicalExternalID(id))
	}
	if !ok {
		exitWithError(ExitError, "record not found in %s: %s", source, id)
	}
	return &coll.Records[idx]
}

func looksLikeDOI(id string) bool {
	lower := strings.ToLower(id)
	return strings.HasPrefix(lower, "10.") || strings.HasPrefix(lower, "doi:") || strings.Contains(lower, "doi.org/")
}
