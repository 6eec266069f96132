package stats

import "github.com/nao1215/infostats/internal/model"

// Default minimum volumes below which derived values are not computed.
const (
	DefaultProblemThreshold = 2
	DefaultSearchThreshold  = 3
)

// per100k is the scale of the per-view rates.
const per100k = 100000

// Thresholds holds the minimum-volume guards of Normalise.
// A count must be strictly greater than its threshold.
type Thresholds struct {
	Problems float64 `yaml:"problems"`
	Searches float64 `yaml:"searches"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Problems: DefaultProblemThreshold,
		Searches: DefaultSearchThreshold,
	}
}

// Normalise computes the derived fields of every row.
//
// For problems and for searches independently, when the count and the page
// views are both present and non-zero, and the count exceeds its threshold
// (and, for problems, is below the page views):
//
//	Per100kViews = count / views * 100000
//	Normalised   = Per100kViews * count
//
// Otherwise both derived fields are set to nil. The result depends only on
// the current measured fields, so calling it again is a no-op.
func Normalise(rows []*model.OutputRow, th Thresholds) {
	for _, row := range rows {
		NormaliseRow(row, th)
	}
}

// NormaliseRow computes the derived fields of a single row.
func NormaliseRow(row *model.OutputRow, th Thresholds) {
	row.ProblemsPer100kViews, row.ProblemsNormalised = derive(row.ProblemReports, row.UniquePageviews, th.Problems, true)
	row.SearchesPer100kViews, row.SearchesNormalised = derive(row.SearchUniques, row.UniquePageviews, th.Searches, false)
}

func derive(count *float64, views *int64, threshold float64, boundedByViews bool) (*float64, *float64) {
	if count == nil || *count == 0 || views == nil || *views == 0 {
		return nil, nil
	}
	c := *count
	v := float64(*views)
	if c <= threshold {
		return nil, nil
	}
	if boundedByViews && c >= v {
		return nil, nil
	}
	rate := c * per100k / v
	return model.Float(rate), model.Float(rate * c)
}
