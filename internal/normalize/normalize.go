// Package normalize turns extracted field bags into canonical records and
// assembles whole runs.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/matsen/retractions/internal/extract"
	"github.com/matsen/retractions/internal/record"
)

// UnknownAuthor is the name given to an author with no name parts at all.
const UnknownAuthor = record.UnknownName + " " + record.UnknownName

var externalIDPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// CanonicalExternalID folds a DOI to its comparison form: prefix-free,
// trimmed, lower-cased, decomposed, with runes outside Latin-1 removed.
func CanonicalExternalID(id string) string {
	s := strings.TrimSpace(id)
	lower := strings.ToLower(s)
	for _, p := range externalIDPrefixes {
		if strings.HasPrefix(lower, p) {
			s = s[len(p):]
			break
		}
	}

	s = norm.NFKD.String(strings.ToLower(strings.TrimSpace(s)))
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxLatin1 {
			return -1
		}
		return r
	}, s)
}

// Normalize builds a record from an extracted field bag. It is total: every
// field receives a value, and problems are returned as issues alongside the
// record rather than in place of it.
func Normalize(bag extract.FieldBag, run string) (record.RetractionRecord, []record.Issue) {
	rec := record.RetractionRecord{
		Identifier:                     strings.TrimSpace(bag.Identifier),
		ExternalID:                     CanonicalExternalID(bag.ExternalID),
		PublicationDate:                normalizeDate(bag.PublicationDate),
		Title:                          strings.TrimSpace(bag.Title),
		JournalTitle:                   strings.TrimSpace(bag.JournalTitle),
		JournalAbbreviation:            strings.TrimSpace(bag.JournalAbbreviation),
		Authors:                        normalizeAuthors(bag.Authors),
		PublicationType:                strings.TrimSpace(bag.PublicationType),
		RetractionNoticeIdentifier:     strings.TrimSpace(bag.RetractionNoticeIdentifier),
		RetractionNoticeCitation:       strings.TrimSpace(bag.RetractionNoticeCitation),
		RetractedPublicationIdentifier: strings.TrimSpace(bag.RetractedPublicationIdentifier),
		Run:                            run,
	}

	var issues []record.Issue
	if rec.Identifier == "" {
		issues = append(issues, record.Issue{
			Kind:       record.KindMissingIdentifier,
			ExternalID: rec.ExternalID,
			Message:    "record has no identifier and cannot be reconciled",
		})
	}
	return rec, issues
}

// normalizeDate replaces zero components with their sentinels.
func normalizeDate(d record.PartialDate) record.PartialDate {
	if d.Year == 0 {
		d.Year = record.UnknownYear
	}
	if d.Month == 0 {
		d.Month = record.UnknownMonth
	}
	if d.Day == 0 {
		d.Day = record.UnknownDay
	}
	return d
}

func normalizeAuthors(in []record.Author) []record.Author {
	out := make([]record.Author, 0, len(in))
	for _, a := range in {
		name := strings.Join(strings.Fields(a.Name), " ")
		if name == "" {
			name = UnknownAuthor
		}
		out = append(out, record.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}
	return out
}
