package model

import "fmt"

// Names of the measured fields of an OutputRow. Dataset configuration maps
// each remote dataset to one of these.
const (
	MeasurePageviews      = "uniquePageviews"
	MeasureProblemReports = "problemReports"
	MeasureSearchUniques  = "searchUniques"
)

// Measures lists every measured field name.
var Measures = []string{MeasurePageviews, MeasureProblemReports, MeasureSearchUniques}

// OutputRow is the per-URL record that is archived and published.
//
// Fields are declared in lexical order of their JSON keys so that the
// encoded object has sorted keys. Nil pointers encode as null. The legacy
// format, title and quintile fields are omitted when unset.
type OutputRow struct {
	EndAt     string `json:"_end_at"`
	StartAt   string `json:"_start_at"`
	Timestamp string `json:"_timestamp"`

	Format   *string `json:"format,omitempty"`
	PagePath string  `json:"pagePath"`

	ProblemReports       *float64 `json:"problemReports"`
	ProblemsNormalised   *float64 `json:"problemsNormalised"`
	ProblemsPer100kViews *float64 `json:"problemsPer100kViews"`
	ProblemsQuintile     *int     `json:"problemsQuintile,omitempty"`

	SearchUniques        *float64 `json:"searchUniques"`
	SearchesNormalised   *float64 `json:"searchesNormalised"`
	SearchesPer100kViews *float64 `json:"searchesPer100kViews"`
	SearchesQuintile     *int     `json:"searchesQuintile,omitempty"`

	Title           *string `json:"title,omitempty"`
	UniquePageviews *int64  `json:"uniquePageviews"`
}

// NewOutputRow creates a row for path seeded with the window metadata.
// Every measured and derived field starts out nil.
func NewOutputRow(path string, w Window) *OutputRow {
	start := w.StartAt()
	return &OutputRow{
		PagePath:  path,
		Timestamp: start,
		StartAt:   start,
		EndAt:     w.EndAt(),
	}
}

// SetMeasure stores v in the measured field called name.
// Page views are truncated to an integer.
func (r *OutputRow) SetMeasure(name string, v *float64) error {
	switch name {
	case MeasurePageviews:
		if v == nil {
			r.UniquePageviews = nil
			return nil
		}
		r.UniquePageviews = Int(int64(*v))
	case MeasureProblemReports:
		r.ProblemReports = copyFloat(v)
	case MeasureSearchUniques:
		r.SearchUniques = copyFloat(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
	}
	return nil
}

// Measure returns the measured field called name as a float.
func (r *OutputRow) Measure(name string) (*float64, error) {
	switch name {
	case MeasurePageviews:
		if r.UniquePageviews == nil {
			return nil, nil
		}
		return Float(float64(*r.UniquePageviews)), nil
	case MeasureProblemReports:
		return r.ProblemReports, nil
	case MeasureSearchUniques:
		return r.SearchUniques, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
	}
}

// HasDerived reports whether any derived rate was computed for the row.
func (r *OutputRow) HasDerived() bool {
	return r.ProblemsPer100kViews != nil || r.SearchesPer100kViews != nil
}

// IsKnownMeasure reports whether name is a measured field of OutputRow.
func IsKnownMeasure(name string) bool {
	for _, m := range Measures {
		if m == name {
			return true
		}
	}
	return false
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SetPage copies the page format and title onto the row.
func (r *OutputRow) SetPage(p Page) {
	r.Format = stringPtr(p.Format)
	r.Title = stringPtr(p.Title)
}
