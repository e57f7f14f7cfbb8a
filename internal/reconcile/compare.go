package reconcile

import "github.com/matsen/retractions/internal/record"

// Comparison is the membership difference between two runs.
type Comparison struct {
	Earlier     string   `json:"earlier"`
	Later       string   `json:"later"`
	EarlierOnly []string `json:"earlier_only"`
	LaterOnly   []string `json:"later_only"`
	Both        []string `json:"both"`
	Changed     []string `json:"changed"` // In both runs with different content
}

// Compare reports which identifiers appear in only one of two runs, which
// appear in both, and which of the shared records changed content between
// them. Records without an identifier are ignored.
func Compare(earlier, later record.Collection) *Comparison {
	cmp := &Comparison{
		Earlier:     earlier.Run,
		Later:       later.Run,
		EarlierOnly: []string{},
		LaterOnly:   []string{},
		Both:        []string{},
		Changed:     []string{},
	}

	laterByID := make(map[string]record.RetractionRecord, len(later.Records))
	for _, r := range later.Records {
		if r.Identifier == "" {
			continue
		}
		if _, ok := laterByID[r.Identifier]; !ok {
			laterByID[r.Identifier] = r
		}
	}

	seen := make(map[string]bool, len(earlier.Records))
	for _, r := range earlier.Records {
		if r.Identifier == "" || seen[r.Identifier] {
			continue
		}
		seen[r.Identifier] = true

		l, ok := laterByID[r.Identifier]
		if !ok {
			cmp.EarlierOnly = append(cmp.EarlierOnly, r.Identifier)
			continue
		}
		cmp.Both = append(cmp.Both, r.Identifier)
		if record.Fingerprint(r) != record.Fingerprint(l) {
			cmp.Changed = append(cmp.Changed, r.Identifier)
		}
	}

	added := make(map[string]bool)
	for _, r := range later.Records {
		if r.Identifier == "" || seen[r.Identifier] || added[r.Identifier] {
			continue
		}
		added[r.Identifier] = true
		cmp.LaterOnly = append(cmp.LaterOnly, r.Identifier)
	}

	return cmp
}
