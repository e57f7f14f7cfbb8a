// Package reconcile joins independently collected runs into one union
// record set with per-record provenance.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/matsen/retractions/internal/record"
)

// Strategy decides which side's fields survive when both runs hold a record.
// MostRecentWins and EarliestWins order run labels as dates when they have
// the form YYYY[-M[-D]] and as strings otherwise.
type Strategy string

const (
	PrimaryWins    Strategy = "primary-wins"     // Default
	SecondaryWins  Strategy = "secondary-wins"   // Newer fetch overrides the union
	MostRecentWins Strategy = "most-recent-wins" // Side with the latest run label
	EarliestWins   Strategy = "earliest-wins"    // Side with the earliest run label
)

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{PrimaryWins, SecondaryWins, MostRecentWins, EarliestWins}
}

// ParseStrategy parses a strategy name. The empty string selects PrimaryWins.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return PrimaryWins, nil
	}
	for _, st := range Strategies() {
		if string(st) == s {
			return st, nil
		}
	}
	names := make([]string, 0, len(Strategies()))
	for _, st := range Strategies() {
		names = append(names, string(st))
	}
	return "", fmt.Errorf("unknown strategy %q (want one of %s)", s, strings.Join(names, ", "))
}

type options struct {
	strategy Strategy
}

// Option configures Reconcile.
type Option func(*options)

// WithStrategy selects the field precedence for matched records.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// Difference records a field that differs between the two sides of a
// matched pair. Differences are informational and never fail a reconcile.
// Values are stored in full; truncation happens only at display time.
type Difference struct {
	Identifier     string `json:"identifier"`
	Field          string `json:"field"`
	PrimaryValue   string `json:"primary_value"`
	SecondaryValue string `json:"secondary_value"`
}

// Stats counts how the records of the two inputs were joined.
type Stats struct {
	Matched       int `json:"matched"`
	PrimaryOnly   int `json:"primary_only"`
	SecondaryOnly int `json:"secondary_only"`
	Unkeyed       int `json:"unkeyed"` // Records passed through without an identifier
	Total         int `json:"total"`
}

// Result is the outcome of a reconcile.
type Result struct {
	Union       record.Collection `json:"union"`
	Strategy    Strategy          `json:"strategy"`
	Stats       Stats             `json:"stats"`
	Differences []Difference      `json:"differences,omitempty"`
}

// KeyCollisionError reports an identifier held by more than one record of
// the same input collection.
type KeyCollisionError struct {
	Run        string
	Identifier string
	Count      int
}

func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("identifier %s appears %d times in run %s", e.Identifier, e.Count, e.Run)
}

func (e *KeyCollisionError) Unwrap() error {
	return record.ErrKeyCollision
}
