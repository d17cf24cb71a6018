package model

import "time"

// Sentinel prices recorded when a name could not be priced.
const (
	PriceNotFound = "Not found"
	PriceError    = "Error"
)

// ResultEntry is one line of a batch report. Field order is the export order.
type ResultEntry struct {
	CardName string `db:"card_name" json:"card_name"`
	Price    string `db:"price" json:"price"`
}

// RunStatus classifies a finished batch run.
type RunStatus string

const (
	RunSuccess   RunStatus = "success"
	RunPartial   RunStatus = "partial"
	RunCancelled RunStatus = "cancelled"
	RunEmpty     RunStatus = "empty"
)

// RunSource records where the candidate names came from.
type RunSource string

const (
	SourceText RunSource = "text"
	SourceFile RunSource = "file"
)

// Report is the outcome of one batch run. Entries are in input order.
type Report struct {
	ID         string        `db:"id" json:"id"`
	Source     RunSource     `db:"source" json:"source"`
	Status     RunStatus     `db:"status" json:"status"`
	Total      int           `db:"total" json:"total"`
	Succeeded  int           `db:"succeeded" json:"succeeded"`
	NotFound   int           `db:"not_found" json:"not_found"`
	Failed     int           `db:"failed" json:"failed"`
	StartedAt  time.Time     `db:"started_at" json:"started_at"`
	FinishedAt time.Time     `db:"finished_at" json:"finished_at"`
	Entries    []ResultEntry `db:"-" json:"entries,omitempty"`
}

// Misses counts names that were not priced.
func (r *Report) Misses() int {
	return r.NotFound + r.Failed
}

// LookupOutcome is the result class of a single lookup.
type LookupOutcome string

const (
	OutcomeFound    LookupOutcome = "found"
	OutcomeNotFound LookupOutcome = "not_found"
	OutcomeError    LookupOutcome = "error"
)

// LookupCall tracks each outbound lookup for monitoring.
type LookupCall struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Outcome     LookupOutcome `db:"outcome" json:"outcome"`
	ResultCount int           `db:"result_count" json:"result_count"`
	DurationMs  int64         `db:"duration_ms" json:"duration_ms"`
	Error       *string       `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}
