// Package pubmed retrieves retraction records from the NCBI E-utilities API.
package pubmed

// esearchResponse is the JSON envelope returned by esearch.
type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
	Error string `json:"error,omitempty"`
}

// SearchResult is one esearch window.
type SearchResult struct {
	Term    string   `json:"term"`
	MinYear int      `json:"min_year"`
	MaxYear int      `json:"max_year"`
	Count   int      `json:"count"` // Total hits reported by PubMed
	IDs     []string `json:"ids"`   // Returned ids, at most MaxResults
}

// Truncated reports whether PubMed found more hits than it returned.
func (r SearchResult) Truncated() bool {
	return r.Count > len(r.IDs)
}

// Window is the per-window summary of a SearchAll.
type Window struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
	Count   int `json:"count"`
	IDs     int `json:"ids"`
}

// SearchAllResult is the outcome of a windowed search.
type SearchAllResult struct {
	Term       string   `json:"term"`
	TotalCount int      `json:"total_count"` // Sum of per-window counts
	IDs        []string `json:"ids"`         // De-duplicated, first-seen order
	Windows    []Window `json:"windows"`
}

// Truncated reports whether any window hit the esearch cap.
func (r SearchAllResult) Truncated() bool {
	for _, w := range r.Windows {
		if w.Count > w.IDs {
			return true
		}
	}
	return false
}
