package model

import "time"

// Run holds the state accumulated by one pipeline execution.
// Each step reads what earlier steps produced and adds its own results.
type Run struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// StartedAt is when the pipeline started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is set once the last step has completed.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Window is the date range all queries and rows use.
	Window Window `json:"window"`

	// Families are the family roots found by the resolver.
	Families []Page `json:"families,omitempty"`

	// Raw holds fetched records keyed by dataset name.
	Raw map[string][]MetricRecord `json:"-"`

	// Rows is the assembled output, sorted by PagePath.
	Rows []*OutputRow `json:"rows"`

	// FetchFailures counts queries that degraded to an empty result.
	FetchFailures int `json:"fetch_failures"`

	// ArchivePath is the file the rows were archived to.
	ArchivePath string `json:"archive_path,omitempty"`

	// Digest is the SHA3-256 digest of the archived rows.
	Digest string `json:"digest,omitempty"`

	// Published is true once the rows were accepted by the output dataset.
	Published bool `json:"published"`

	// CompletedSteps lists the pipeline steps that ran, in order.
	CompletedSteps []string `json:"completed_steps,omitempty"`

	// Cancelled indicates the run was interrupted.
	Cancelled bool `json:"cancelled"`

	// Error is the step error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRun creates an empty run for window.
func NewRun(id string, window Window) *Run {
	return &Run{
		ID:        id,
		StartedAt: time.Now(),
		Window:    window,
		Raw:       make(map[string][]MetricRecord),
		Rows:      make([]*OutputRow, 0),
	}
}

// AddRecords appends fetched records for dataset.
func (r *Run) AddRecords(dataset string, records []MetricRecord) {
	r.Raw[dataset] = append(r.Raw[dataset], records...)
}

// Row returns the row for path, or nil.
func (r *Run) Row(path string) *OutputRow {
	for _, row := range r.Rows {
		if row.PagePath == path {
			return row
		}
	}
	return nil
}

// FamilyPage returns the family page for path.
func (r *Run) FamilyPage(path string) (Page, bool) {
	for _, p := range r.Families {
		if p.Link == path {
			return p, true
		}
	}
	return Page{}, false
}

// Duration returns how long the run took, or zero when unfinished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
