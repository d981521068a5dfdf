// Package models defines data structures for the deals client.
package models

import "time"

// RawItem is one product object as returned under the endpoint's ItemList.
type RawItem map[string]any

// Product is a flat record of recognised fields. A key is present only when
// its source field was present and non-empty.
type Product map[string]string

// Row returns the values of p in the order of fields. Missing fields are
// empty and keys outside fields are dropped.
func (p Product) Row(fields []string) []string {
	row := make([]string, len(fields))
	for i, field := range fields {
		row[i] = p[field]
	}
	return row
}

// FetchStatus classifies the outcome of a single page request.
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchEmpty
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchEmpty:
		return "empty"
	case FetchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of requesting one page.
type FetchResult struct {
	PageIndex int
	URL       string
	Items     []RawItem
	Status    FetchStatus
	ErrorType string
	Err       error
	Cached    bool
}

// RunStatus summarises a whole pagination run.
type RunStatus string

const (
	RunSkipped  RunStatus = "skipped"
	RunEmpty    RunStatus = "empty"
	RunComplete RunStatus = "complete"
	RunPartial  RunStatus = "partial"
	RunFailed   RunStatus = "failed"
)

// ScrapeResult holds the overall result of a scraping operation.
type ScrapeResult struct {
	Items        []RawItem
	Pages        []FetchResult
	LastPage     int
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	ErrorsByType map[string]int
	RequestCount int
	PageCount    int
	FailedURLs   []string
}

// Status derives the run outcome from the page results.
func (r *ScrapeResult) Status() RunStatus {
	if len(r.Pages) == 0 {
		return RunSkipped
	}
	if r.ErrorCount > 0 {
		if len(r.Items) == 0 {
			return RunFailed
		}
		return RunPartial
	}
	if len(r.Items) == 0 {
		return RunEmpty
	}
	return RunComplete
}
