package reconcile

import (
	"strings"

	"github.com/matsen/retractions/internal/record"
)

// fieldAccessors lists the content fields compared between matched records.
var fieldAccessors = []struct {
	name string
	get  func(record.RetractionRecord) string
}{
	{"external_id", func(r record.RetractionRecord) string { return r.ExternalID }},
	{"publication_date", func(r record.RetractionRecord) string { return r.PublicationDate.String() }},
	{"title", func(r record.RetractionRecord) string { return r.Title }},
	{"journal_title", func(r record.RetractionRecord) string { return r.JournalTitle }},
	{"journal_abbreviation", func(r record.RetractionRecord) string { return r.JournalAbbreviation }},
	{"authors", formatAuthors},
	{"publication_type", func(r record.RetractionRecord) string { return r.PublicationType }},
	{"retraction_notice_identifier", func(r record.RetractionRecord) string { return r.RetractionNoticeIdentifier }},
	{"retraction_notice_citation", func(r record.RetractionRecord) string { return r.RetractionNoticeCitation }},
	{"retracted_publication_identifier", func(r record.RetractionRecord) string { return r.RetractedPublicationIdentifier }},
}

// Diff lists the content fields on which two versions of a record differ.
func Diff(primary, secondary record.RetractionRecord) []Difference {
	var out []Difference
	for _, f := range fieldAccessors {
		pv, sv := f.get(primary), f.get(secondary)
		if pv == sv {
			continue
		}
		out = append(out, Difference{
			Identifier:     primary.Identifier,
			Field:          f.name,
			PrimaryValue:   pv,
			SecondaryValue: sv,
		})
	}
	return out
}

func formatAuthors(r record.RetractionRecord) string {
	parts := make([]string, len(r.Authors))
	for i, a := range r.Authors {
		parts[i] = a.Name
		if a.Affiliation != "" {
			parts[i] += " (" + a.Affiliation + ")"
		}
	}
	return strings.Join(parts, "; ")
}
