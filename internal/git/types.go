// Package git reads committed snapshots of run and union files so they can
// be compared with the working tree.
package git

import "github.com/matsen/retractions/internal/record"

// Snapshot is a JSONL file's records at one git revision.
type Snapshot struct {
	Path    string // Path relative to the repository root
	Commit  string // Resolved SHA; empty for the working tree
	Records []record.RetractionRecord
}
