// Package storage handles data persistence in JSONL and SQLite formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matsen/retractions/internal/record"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// readJSONL decodes one value per non-empty line. A missing file reads as empty.
func readJSONL[T any](path, what string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s file: %w", what, err)
	}
	defer f.Close()

	return decodeJSONL[T](f, what)
}

// decodeJSONL decodes one value per non-empty line of r.
func decodeJSONL[T any](r io.Reader, what string) ([]T, error) {
	var out []T
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		out = append(out, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return out, nil
}

// writeJSONL replaces the file with one encoded value per line.
func writeJSONL[T any](path, what string, values []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s file: %w", what, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s file: %w", what, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s %d: %w", what, i, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing %s %d: %w", what, i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s file: %w", what, err)
	}
	return f.Close()
}

// DecodeRecords reads records in JSONL form from r.
func DecodeRecords(r io.Reader) ([]record.RetractionRecord, error) {
	return decodeJSONL[record.RetractionRecord](r, "records")
}

// ReadAll reads all records from a JSONL file.
func ReadAll(path string) ([]record.RetractionRecord, error) {
	return readJSONL[record.RetractionRecord](path, "records")
}

// WriteAll writes all records to a JSONL file, replacing existing content.
func WriteAll(path string, recs []record.RetractionRecord) error {
	return writeJSONL(path, "record", recs)
}

// Append adds a record to the end of a JSONL file.
func Append(path string, rec record.RetractionRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening records file for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// ReadCollection reads a run or union snapshot as a labeled collection.
func ReadCollection(path, label string) (record.Collection, error) {
	recs, err := ReadAll(path)
	if err != nil {
		return record.Collection{}, err
	}
	return record.Collection{Run: label, Records: recs}, nil
}

// WriteIssues writes extraction issues next to a run snapshot.
func WriteIssues(path string, issues []record.Issue) error {
	return writeJSONL(path, "issue", issues)
}

// ReadIssues reads issues written by WriteIssues.
func ReadIssues(path string) ([]record.Issue, error) {
	return readJSONL[record.Issue](path, "issues")
}

// FindByID searches for a record by identifier.
func FindByID(recs []record.RetractionRecord, id string) (int, bool) {
	if id == "" {
		return -1, false
	}
	for i, r := range recs {
		if r.Identifier == id {
			return i, true
		}
	}
	return -1, false
}

// FindByExternalID searches for a record by DOI, ignoring case.
func FindByExternalID(recs []record.RetractionRecord, doi string) (int, bool) {
	if doi == "" {
		return -1, false
	}
	for i, r := range recs {
		if strings.EqualFold(r.ExternalID, doi) {
			return i, true
		}
	}
	return -1, false
}

// RunExt is the file extension of run snapshots.
const RunExt = ".jsonl"

// IssuesSuffix marks the issue file written beside each run snapshot.
const IssuesSuffix = ".issues"

// ListRuns returns the sorted labels of the run snapshots in dir. A missing
// directory has no runs.
func ListRuns(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	var labels []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, RunExt) {
			continue
		}
		label := strings.TrimSuffix(name, RunExt)
		if strings.HasSuffix(label, IssuesSuffix) {
			continue
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}
