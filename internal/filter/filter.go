// Package filter selects records from a reconciled collection.
package filter

import (
	"strings"
	"time"

	"github.com/matsen/retractions/internal/author"
	"github.com/matsen/retractions/internal/record"
)

// Predicate reports whether a record is kept. Provenance predicates read
// SourceRuns, so they expect records that went through the reconciler.
type Predicate func(record.RetractionRecord) bool

// Apply returns the records of c that satisfy every predicate, in order.
// The result keeps the collection label.
func Apply(c record.Collection, preds ...Predicate) record.Collection {
	out := record.Collection{Run: c.Run, Records: make([]record.RetractionRecord, 0, len(c.Records))}
	for _, r := range c.Records {
		if matches(r, preds) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

func matches(r record.RetractionRecord, preds []Predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(r record.RetractionRecord) bool {
		return !p(r)
	}
}

// InRun keeps records observed in the given run.
func InRun(label string) Predicate {
	return func(r record.RetractionRecord) bool {
		for _, l := range r.Provenance() {
			if l == label {
				return true
			}
		}
		return false
	}
}

// OnlyInRun keeps records observed in the given run and no other.
func OnlyInRun(label string) Predicate {
	return func(r record.RetractionRecord) bool {
		runs := r.Provenance()
		return len(runs) == 1 && runs[0] == label
	}
}

// PublishedBetween keeps records published within [from, to]. A zero bound
// is open. Records with an unknown year never match.
func PublishedBetween(from, to time.Time) Predicate {
	return func(r record.RetractionRecord) bool {
		t, ok := r.PublicationDate.Time()
		if !ok {
			return false
		}
		if !from.IsZero() && t.Before(from) {
			return false
		}
		if !to.IsZero() && t.After(to) {
			return false
		}
		return true
	}
}

// NoticeOnOrBefore keeps records whose retraction notice was published on
// or before cutoff. A notice citation without an embedded date counts as
// arbitrarily early and is kept.
func NoticeOnOrBefore(cutoff time.Time) Predicate {
	return func(r record.RetractionRecord) bool {
		n := r.Notice()
		if !n.HasDate {
			return true
		}
		t, ok := n.Date.Time()
		if !ok {
			return true
		}
		return !t.After(cutoff)
	}
}

// NoticeHasDOI keeps records whose notice citation is a bare DOI reference
// with no embedded date.
func NoticeHasDOI() Predicate {
	return func(r record.RetractionRecord) bool {
		n := r.Notice()
		return n.DOI != "" && !n.HasDate
	}
}

// HasNotice keeps records linked to a retraction notice.
func HasNotice() Predicate {
	return func(r record.RetractionRecord) bool {
		return r.RetractionNoticeIdentifier != "" || r.RetractionNoticeCitation != ""
	}
}

// HasPublicationType keeps records carrying the given publication type tag.
func HasPublicationType(tag string) Predicate {
	return func(r record.RetractionRecord) bool {
		return r.HasType(tag)
	}
}

// ByAuthors keeps records whose author list matches every query.
func ByAuthors(queries ...author.Query) Predicate {
	return func(r record.RetractionRecord) bool {
		return author.AllMatch(queries, r.Authors)
	}
}

// NoticeDOIMatchesPublication reports whether the notice citation carries
// the publication's own DOI, which happens when the notice was filed
// against the retracted article instead of under its own identifier.
func NoticeDOIMatchesPublication(r record.RetractionRecord) bool {
	n := r.Notice()
	return n.DOI != "" && r.ExternalID != "" && strings.EqualFold(n.DOI, r.ExternalID)
}
