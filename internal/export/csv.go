// Package export writes union lists in tabular formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/retractions/internal/record"
)

// Columns is the union-list CSV header.
var Columns = []string{
	"DOI",
	"Author",
	"Au_Affiliation",
	"Title",
	"Publication_Date",
	"Journal",
	"JournalAbrv",
	"PubType",
	"PubMedID",
	"Retraction_Notice_PubMedID",
	"Retraction_Notice_Citation",
	"RetractionOf",
	"Indexed_as_retracted_in",
}

// WriteCSV writes records as a union-list CSV with a header row.
func WriteCSV(w io.Writer, recs []record.RetractionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range recs {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("writing record %s: %w", r.Identifier, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row formats one record in Columns order. Authors and affiliations are
// separate ";"-joined lists of equal length, so the i-th affiliation always
// belongs to the i-th author.
func Row(r record.RetractionRecord) []string {
	names := make([]string, len(r.Authors))
	affiliations := make([]string, len(r.Authors))
	anyAffiliation := false
	for i, a := range r.Authors {
		names[i] = a.Name
		affiliations[i] = a.Affiliation
		anyAffiliation = anyAffiliation || a.HasAffiliation()
	}
	affiliationCell := ""
	if anyAffiliation {
		affiliationCell = strings.Join(affiliations, ";")
	}

	return []string{
		r.ExternalID,
		strings.Join(names, ";"),
		affiliationCell,
		r.Title,
		r.PublicationDate.String(),
		r.JournalTitle,
		r.JournalAbbreviation,
		r.PublicationType,
		r.Identifier,
		r.RetractionNoticeIdentifier,
		r.RetractionNoticeCitation,
		r.RetractedPublicationIdentifier,
		IndexedIn(r),
	}
}

// IndexedIn renders a record's provenance, e.g. "2024 query; 2025 query".
func IndexedIn(r record.RetractionRecord) string {
	runs := r.Provenance()
	parts := make([]string, len(runs))
	for i, run := range runs {
		parts[i] = run + " query"
	}
	return strings.Join(parts, "; ")
}
