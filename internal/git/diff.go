package git

import (
	"github.com/matsen/retractions/internal/reconcile"
	"github.com/matsen/retractions/internal/record"
)

// DiffWorkingTree compares relPath in the working tree to HEAD.
func DiffWorkingTree(dir, relPath string) (*reconcile.Comparison, error) {
	return DiffSince(dir, "HEAD", relPath)
}

// DiffSince compares relPath in the working tree to its state at commitRef.
// Records added, dropped and changed since that commit are reported.
func DiffSince(dir, commitRef, relPath string) (*reconcile.Comparison, error) {
	old, err := SnapshotAt(dir, commitRef, relPath)
	if err != nil {
		return nil, err
	}
	current, err := WorkingSnapshot(dir, relPath)
	if err != nil {
		return nil, err
	}

	cmp := reconcile.Compare(
		record.Collection{Run: commitRef, Records: old.Records},
		record.Collection{Run: "working tree", Records: current.Records},
	)
	return cmp, nil
}
