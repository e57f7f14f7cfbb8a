package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/retractions/internal/export"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportSort   bool
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv or jsonl")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportSort, "sort-by-date", false, "Order records by publication date")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [source]",
	Short: "Export the union or a run as CSV",
	Long: `Export a source (default "union") as a table with one row per record.

CSV columns: DOI, Author, Au_Affiliation, Title, Publication_Date, Journal,
JournalAbrv, PubType, PubMedID, Retraction_Notice_PubMedID,
Retraction_Notice_Citation, RetractionOf, Indexed_as_retracted_in.

Authors are joined with ";" and affiliations are listed in the same order.
Dates are YYYY:MM:DD with 9999/99 for unknown parts.

Examples:
  rx export > retractions.csv
  rx export 2025 --format jsonl -o 2025.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "jsonl" {
		exitWithError(ExitError, "unknown format %q (want csv or jsonl)", exportFormat)
	}

	source := UnionSource
	if len(args) == 1 {
		source = args[0]
	}

	repoRoot := mustFindRepository()
	coll := mustLoadSource(repoRoot, source)

	recs := coll.Records
	if exportSort {
		recs = make([]record.RetractionRecord, len(coll.Records))
		copy(recs, coll.Records)
		record.SortByDate(recs)
	}

	if exportOutput == "" {
		// Exports are always data output, never JSON status
		if err := writeExport(os.Stdout, recs); err != nil {
			exitWithError(ExitError, "exporting: %v", err)
		}
		return nil
	}

	if exportFormat == "jsonl" {
		if err := storage.WriteAll(exportOutput, recs); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportOutput, err)
		}
	} else {
		f, err := os.Create(exportOutput)
		if err != nil {
			exitWithError(ExitError, "creating %s: %v", exportOutput, err)
		}
		if err := writeExport(f, recs); err != nil {
			f.Close()
			exitWithError(ExitError, "writing %s: %v", exportOutput, err)
		}
		if err := f.Close(); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportOutput, err)
		}
	}

	if humanOutput {
		fmt.Printf("Exported %d records from %s to %s\n", len(recs), coll.Run, exportOutput)
	} else {
		outputJSON(ExportResult{Format: exportFormat, Exported: len(recs), Output: exportOutput})
	}
	return nil
}

func writeExport(w io.Writer, recs []record.RetractionRecord) error {
	if exportFormat == "jsonl" {
		enc := json.NewEncoder(w)
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	return export.WriteCSV(w, recs)
}
