// Package conflict resolves git merge conflicts in run and union snapshots.
//
// Git sees each JSONL line as an opaque blob. Records inside a conflict
// region are instead joined on their PubMed ID and reconciled, so both
// sides' records survive and matched records keep one version.
package conflict

import (
	"fmt"

	"github.com/matsen/retractions/internal/reconcile"
	"github.com/matsen/retractions/internal/record"
)

// Region is one git conflict region of a JSONL snapshot.
type Region struct {
	StartLine int // Line of the <<<<<<< marker (1-indexed)
	EndLine   int // Line of the >>>>>>> marker

	Ours   []record.RetractionRecord // HEAD side
	Theirs []record.RetractionRecord // Incoming side
}

// Segment is a run of the file in original order: either clean records or
// a conflict region.
type Segment struct {
	Clean  []record.RetractionRecord
	Region *Region
}

// File is a parsed, possibly conflicted snapshot.
type File struct {
	Segments []Segment
}

// HasConflicts returns true if the file contains any conflict regions.
func (f *File) HasConflicts() bool {
	for _, s := range f.Segments {
		if s.Region != nil {
			return true
		}
	}
	return false
}

// Regions returns the conflict regions in file order.
func (f *File) Regions() []*Region {
	var out []*Region
	for _, s := range f.Segments {
		if s.Region != nil {
			out = append(out, s.Region)
		}
	}
	return out
}

// ParseError reports malformed conflict markers or JSON.
type ParseError struct {
	Line    int    // Line number where error occurred (1-indexed)
	Message string // Description of the error
	Context string // Offending content, truncated
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// RegionResult describes how one region was resolved.
type RegionResult struct {
	StartLine   int                    `json:"start_line"`
	EndLine     int                    `json:"end_line"`
	Stats       reconcile.Stats        `json:"stats"`
	Differences []reconcile.Difference `json:"differences"`
}

// Resolution is the resolved snapshot.
type Resolution struct {
	Records  []record.RetractionRecord `json:"-"`
	Strategy reconcile.Strategy        `json:"strategy"`
	Regions  []RegionResult            `json:"regions"`
	Total    int                       `json:"total"` // Records in the resolved file
}
