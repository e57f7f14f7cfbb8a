package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matsen/retractions/internal/record"
)

func sampleRecords() []record.RetractionRecord {
	return []record.RetractionRecord{
		{
			Identifier:      "33441234",
			ExternalID:      "10.3390/ijms22010001",
			PublicationDate: record.PartialDate{Year: 2021, Month: 3, Day: 4},
			Title:           "Long noncoding RNA MALAT1 promotes tumour growth",
			JournalTitle:    "International journal of molecular sciences",
			Authors: []record.Author{
				{Name: "Wei Zhang", Affiliation: "Example University"},
				{Name: "Na Li"},
			},
			PublicationType:            "Journal Article;Retracted Publication",
			RetractionNoticeIdentifier: "37370001",
			RetractionNoticeCitation:   "Int J Mol Sci. 2023 Jun 12;24(12):10001",
			SourceRuns:                 []string{"2024", "2025"},
		},
		{
			Identifier:      "29990001",
			PublicationDate: record.UnknownDate(),
			Title:           "Statistical methods in genomics",
			Authors:         []record.Author{},
			Run:             "2025",
		},
	}
}

func TestReadAll_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "union.jsonl")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	recs, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("ReadAll() returned %d records, want 0", len(recs))
	}
}

func TestReadAll_NonExistentFile(t *testing.T) {
	recs, err := ReadAll("/nonexistent/path/union.jsonl")
	if err != nil {
		t.Fatalf("ReadAll() error = %v (should return nil for nonexistent file)", err)
	}
	if len(recs) != 0 {
		t.Errorf("ReadAll() returned %v, want nil or empty slice", recs)
	}
}

func TestReadAll_SkipsEmptyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	content := `{"identifier":"1","title":"A","publication_date":{"year":2020,"month":1,"day":2}}

{"identifier":"2","title":"B"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	recs, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ReadAll() returned %d records, want 2", len(recs))
	}
	if recs[0].PublicationDate != (record.PartialDate{Year: 2020, Month: 1, Day: 2}) {
		t.Errorf("PublicationDate = %+v", recs[0].PublicationDate)
	}
}

func TestReadAll_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	if err := os.WriteFile(path, []byte("{\"identifier\":\"1\"}\n{not json\n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := ReadAll(path); err == nil {
		t.Error("ReadAll() should fail on invalid JSON")
	}
}

func TestDecodeRecords(t *testing.T) {
	recs, err := DecodeRecords(strings.NewReader("{\"identifier\":\"1\"}\n\n{\"identifier\":\"2\"}\n"))
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	if len(recs) != 2 || recs[1].Identifier != "2" {
		t.Errorf("DecodeRecords() = %+v", recs)
	}
}

func TestWriteAll_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "2025.jsonl")
	want := sampleRecords()

	if err := WriteAll(path, want); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestWriteAll_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "union.jsonl")
	recs := sampleRecords()

	if err := WriteAll(path, recs); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := WriteAll(path, recs[:1]); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d records after overwrite, want 1", len(got))
	}
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	for _, r := range sampleRecords() {
		if err := Append(path, r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 2 || got[1].Identifier != "29990001" {
		t.Errorf("got %+v", got)
	}
}

func TestReadCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2025.jsonl")
	if err := WriteAll(path, sampleRecords()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	c, err := ReadCollection(path, "2025")
	if err != nil {
		t.Fatalf("ReadCollection() error = %v", err)
	}
	if c.Run != "2025" || c.Len() != 2 {
		t.Errorf("collection = %s with %d records", c.Run, c.Len())
	}
}

func TestIssues_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2025.issues.jsonl")
	want := []record.Issue{
		{Kind: record.KindMalformedRecord, Identifier: "1", Field: "publication_date", Message: "invalid year"},
		{Kind: record.KindMissingIdentifier, Message: "record has no identifier"},
	}

	if err := WriteIssues(path, want); err != nil {
		t.Fatalf("WriteIssues() error = %v", err)
	}
	got, err := ReadIssues(path)
	if err != nil {
		t.Fatalf("ReadIssues() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFindByID(t *testing.T) {
	recs := sampleRecords()

	if i, ok := FindByID(recs, "29990001"); !ok || i != 1 {
		t.Errorf("FindByID(29990001) = %d, %v", i, ok)
	}
	if _, ok := FindByID(recs, "missing"); ok {
		t.Error("FindByID(missing) should not find anything")
	}
	if _, ok := FindByID(recs, ""); ok {
		t.Error("FindByID(\"\") should not find anything")
	}
}

func TestFindByExternalID(t *testing.T) {
	recs := sampleRecords()

	if i, ok := FindByExternalID(recs, "10.3390/IJMS22010001"); !ok || i != 0 {
		t.Errorf("FindByExternalID() = %d, %v", i, ok)
	}
	if _, ok := FindByExternalID(recs, ""); ok {
		t.Error("empty DOI should not match records without one")
	}
}

func TestListRuns(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2025.jsonl", "2024.jsonl", "2025.issues.jsonl", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "old.jsonl"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	labels, err := ListRuns(dir)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if !reflect.DeepEqual(labels, []string{"2024", "2025"}) {
		t.Errorf("ListRuns() = %v", labels)
	}

	missing, err := ListRuns(filepath.Join(dir, "nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("ListRuns(missing) = %v, %v", missing, err)
	}
}
