package record

import (
	"errors"
	"fmt"
)

// Error kinds reported by extraction, normalization and reconciliation.
var (
	// ErrMalformedRecord indicates that one field of a raw record did not
	// have the expected structure. The field keeps its default.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingIdentifier indicates a record without an identifier, which
	// cannot be joined during reconciliation.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrKeyCollision indicates two records sharing an identifier within one
	// collection.
	ErrKeyCollision = errors.New("identifier collision")
)

// IssueKind classifies a data-quality issue.
type IssueKind string

const (
	KindMalformedRecord   IssueKind = "malformed_record"
	KindMissingIdentifier IssueKind = "missing_identifier"
)

// Issue is a non-fatal problem found while building a record. Issues are
// returned as values alongside the (partial) record.
type Issue struct {
	Kind       IssueKind `json:"kind"`
	Identifier string    `json:"identifier,omitempty"`  // Best-known identifier
	ExternalID string    `json:"external_id,omitempty"` // Best-known DOI
	Field      string    `json:"field,omitempty"`       // Field that failed, if any
	Message    string    `json:"message"`
}

// MalformedIssue builds a MalformedRecord issue for a field.
func MalformedIssue(field, format string, args ...any) Issue {
	return Issue{
		Kind:    KindMalformedRecord,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func (i Issue) Error() string {
	id := i.Identifier
	if id == "" {
		id = "?"
	}
	if i.ExternalID != "" {
		id += " (" + i.ExternalID + ")"
	}
	if i.Field != "" {
		return fmt.Sprintf("record %s: %s: %s", id, i.Field, i.Message)
	}
	return fmt.Sprintf("record %s: %s", id, i.Message)
}

// Unwrap maps the issue to its sentinel error so callers can use errors.Is.
func (i Issue) Unwrap() error {
	switch i.Kind {
	case KindMissingIdentifier:
		return ErrMissingIdentifier
	default:
		return ErrMalformedRecord
	}
}

// IsMalformed returns true if the error is a MalformedRecord issue.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsMissingIdentifier returns true if the error is a MissingIdentifier issue.
func IsMissingIdentifier(err error) bool {
	return errors.Is(err, ErrMissingIdentifier)
}
