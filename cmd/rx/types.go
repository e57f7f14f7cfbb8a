package main

import (
	"github.com/matsen/retractions/internal/pubmed"
	"github.com/matsen/retractions/internal/reconcile"
	"github.com/matsen/retractions/internal/record"
)

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// RunResult is the JSON response for rx fetch and rx extract.
type RunResult struct {
	Status     string                  `json:"status"`
	Run        string                  `json:"run"`
	Path       string                  `json:"path"`
	Records    int                     `json:"records"`
	IssuesPath string                  `json:"issues_path,omitempty"`
	Issues     []record.Issue          `json:"issues"`
	Search     *pubmed.SearchAllResult `json:"search,omitempty"` // rx fetch only
}

// RunInfo summarizes one stored collection.
type RunInfo struct {
	Label   string `json:"label"`
	Records int    `json:"records"`
	Issues  int    `json:"issues"`
}

// RunsResult is the JSON response for rx runs.
type RunsResult struct {
	Runs  []RunInfo `json:"runs"`
	Union *RunInfo  `json:"union,omitempty"`
}

// ReconcileResult is the JSON response for rx reconcile.
type ReconcileResult struct {
	Status      string                 `json:"status"`
	Label       string                 `json:"label"` // Label of the union, e.g. "2024+2025"
	Strategy    reconcile.Strategy     `json:"strategy"`
	Path        string                 `json:"path"`
	Records     int                    `json:"records"`
	Stats       reconcile.Stats        `json:"stats"`
	Differences []reconcile.Difference `json:"differences"`
}

// FilterResult is the JSON response for rx filter with --output.
type FilterResult struct {
	Source  string `json:"source"`
	Total   int    `json:"total"`
	Matched int    `json:"matched"`
	Output  string `json:"output"`
}

// RebuildResult is the JSON response for rx rebuild.
type RebuildResult struct {
	Status  string         `json:"status"`
	Source  string         `json:"source"`
	Records int            `json:"records"`
	ByRun   map[string]int `json:"by_run"`
}

// ExportResult is the JSON response for rx export with --output.
type ExportResult struct {
	Format   string `json:"format"`
	Exported int    `json:"exported"`
	Output   string `json:"output"`
}
