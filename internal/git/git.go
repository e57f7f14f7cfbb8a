package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/matsen/retractions/internal/storage"
)

// ErrNotGitRepo indicates the directory is not a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// ErrCommitNotFound indicates the specified commit does not exist.
var ErrCommitNotFound = errors.New("commit not found")

// ErrFileNotTracked indicates a snapshot file is not tracked by git.
var ErrFileNotTracked = errors.New("file not tracked by git")

// FindRepoRoot finds the root of the git repository containing the given path.
// Returns ErrNotGitRepo if not in a git repository.
func FindRepoRoot(path string) (string, error) {
	cmd := exec.Command("git", "-C", path, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", ErrNotGitRepo
	}
	return strings.TrimSpace(string(output)), nil
}

// IsGitRepo checks if the given path is inside a git repository.
func IsGitRepo(path string) bool {
	_, err := FindRepoRoot(path)
	return err == nil
}

// ValidateCommit verifies that a commit reference exists.
// Supports SHA, HEAD, HEAD~N, branch names, tags, etc.
// Returns the resolved full SHA or ErrCommitNotFound.
func ValidateCommit(dir, commitRef string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--verify", "--quiet", commitRef+"^{commit}")
	output, err := cmd.Output()
	if err != nil {
		return "", ErrCommitNotFound
	}
	return strings.TrimSpace(string(output)), nil
}

// IsFileTracked checks if relPath (relative to dir) is tracked by git.
func IsFileTracked(dir, relPath string) bool {
	cmd := exec.Command("git", "-C", dir, "ls-files", "--error-unmatch", relPath)
	return cmd.Run() == nil
}

// SnapshotAt reads the records of relPath (relative to dir) as committed
// at commitRef. A file that did not exist at that commit reads as empty.
func SnapshotAt(dir, commitRef, relPath string) (*Snapshot, error) {
	sha, err := ValidateCommit(dir, commitRef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", commitRef, err)
	}

	// "./" makes the path relative to dir rather than the top level.
	cmd := exec.Command("git", "-C", dir, "show", sha+":./"+filepath.ToSlash(relPath))
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Snapshot{Path: relPath, Commit: sha}, nil
		}
		return nil, fmt.Errorf("reading %s at %s: %w", relPath, commitRef, err)
	}

	recs, err := storage.DecodeRecords(bytes.NewReader(output))
	if err != nil {
		return nil, fmt.Errorf("parsing %s at %s: %w", relPath, commitRef, err)
	}
	return &Snapshot{Path: relPath, Commit: sha, Records: recs}, nil
}

// WorkingSnapshot reads the records of relPath from the working tree. A
// missing file reads as empty.
func WorkingSnapshot(dir, relPath string) (*Snapshot, error) {
	recs, err := storage.ReadAll(filepath.Join(dir, relPath))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", relPath, err)
	}
	return &Snapshot{Path: relPath, Records: recs}, nil
}
