// Package record defines the core domain types for retracted publications.
package record

import (
	"sort"
	"strings"
)

// UnknownName replaces a missing forename or surname so that author
// counts stay stable across extractions of the same record.
const UnknownName = "unknown"

// RetractionRecord represents one retracted publication as observed in one run.
type RetractionRecord struct {
	// Identity
	Identifier string `json:"identifier"`            // PubMed ID, the join key
	ExternalID string `json:"external_id,omitempty"` // Canonical DOI, informational only

	// Metadata
	PublicationDate     PartialDate `json:"publication_date"`
	Title               string      `json:"title"`
	JournalTitle        string      `json:"journal_title"`
	JournalAbbreviation string      `json:"journal_abbreviation"`
	Authors             []Author    `json:"authors"`
	PublicationType     string      `json:"publication_type"` // Semicolon-joined type tags

	// Retraction notice linkage
	RetractionNoticeIdentifier     string `json:"retraction_notice_identifier,omitempty"`
	RetractionNoticeCitation       string `json:"retraction_notice_citation,omitempty"`
	RetractedPublicationIdentifier string `json:"retracted_publication_identifier,omitempty"`

	// Provenance
	Run        string   `json:"run,omitempty"`         // Run the record was observed in
	SourceRuns []string `json:"source_runs,omitempty"` // Set by the reconciler only
}

// Author is one entry of a record's author list.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// HasAffiliation reports whether the author carries an affiliation.
func (a Author) HasAffiliation() bool {
	return a.Affiliation != ""
}

// Types splits PublicationType into its individual tags.
func (r RetractionRecord) Types() []string {
	if r.PublicationType == "" {
		return nil
	}
	var types []string
	for _, t := range strings.Split(r.PublicationType, ";") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// HasType reports whether the record carries the given publication type tag.
func (r RetractionRecord) HasType(tag string) bool {
	for _, t := range r.Types() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IsNotice reports whether the record is itself a retraction notice.
func (r RetractionRecord) IsNotice() bool {
	return r.RetractedPublicationIdentifier != ""
}

// Clone returns a deep copy so callers can derive new records without
// sharing slices with the original.
func (r RetractionRecord) Clone() RetractionRecord {
	out := r
	if r.Authors != nil {
		out.Authors = make([]Author, len(r.Authors))
		copy(out.Authors, r.Authors)
	}
	if r.SourceRuns != nil {
		out.SourceRuns = make([]string, len(r.SourceRuns))
		copy(out.SourceRuns, r.SourceRuns)
	}
	return out
}

// Collection is one run's (or one union's) record set.
type Collection struct {
	Run     string             `json:"run"`
	Records []RetractionRecord `json:"records"`
}

// Provenance returns the run labels a record of this collection was observed in.
// Records that have not been through the reconciler yet count as observed in
// the collection's own run.
func (c Collection) Provenance(r RetractionRecord) []string {
	if runs := r.Provenance(); runs != nil {
		return runs
	}
	if c.Run != "" {
		return []string{c.Run}
	}
	return nil
}

// Provenance returns SourceRuns, or the record's own run when it has not
// been reconciled. It is nil when neither is set.
func (r RetractionRecord) Provenance() []string {
	if len(r.SourceRuns) > 0 {
		return r.SourceRuns
	}
	if r.Run != "" {
		return []string{r.Run}
	}
	return nil
}

// Identifiers returns the identifiers of all records in order.
func (c Collection) Identifiers() []string {
	ids := make([]string, len(c.Records))
	for i, r := range c.Records {
		ids[i] = r.Identifier
	}
	return ids
}

// Len returns the number of records.
func (c Collection) Len() int {
	return len(c.Records)
}

// UnionRuns merges run label sets into one sorted, de-duplicated set.
func UnionRuns(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, label := range set {
			if label == "" || seen[label] {
				continue
			}
			seen[label] = true
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}

// SortByDate orders records by publication date, unknown dates last, with
// the identifier as a tie breaker.
func SortByDate(recs []RetractionRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if c := recs[i].PublicationDate.Compare(recs[j].PublicationDate); c != 0 {
			return c < 0
		}
		return recs[i].Identifier < recs[j].Identifier
	})
}
