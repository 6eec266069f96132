package model

import (
	"cmp"
	"slices"
	"time"
)

// DefaultTopN is the number of pages listed in each ranking.
const DefaultTopN = 10

// Summary is a condensed view of a Run for terminal, Markdown and JSON
// reports.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	WindowFrom string    `json:"window_start"`
	WindowTo   string    `json:"window_end"`

	// TotalRows is the number of published rows.
	TotalRows int `json:"total_rows"`

	// RowsWithPageviews counts rows that have a page-view count.
	RowsWithPageviews int `json:"rows_with_pageviews"`

	// RowsWithProblemRate counts rows with a problems-per-100k value.
	RowsWithProblemRate int `json:"rows_with_problem_rate"`

	// RowsWithSearchRate counts rows with a searches-per-100k value.
	RowsWithSearchRate int `json:"rows_with_search_rate"`

	Families      int `json:"families"`
	FetchFailures int `json:"fetch_failures"`

	ArchivePath string `json:"archive_path,omitempty"`
	Published   bool   `json:"published"`
	Error       string `json:"error,omitempty"`

	// TopProblems ranks pages by problemsNormalised, highest first.
	TopProblems []RankedPage `json:"top_problems,omitempty"`

	// TopSearches ranks pages by searchesNormalised, highest first.
	TopSearches []RankedPage `json:"top_searches,omitempty"`
}

// RankedPage is one entry of a Summary ranking.
type RankedPage struct {
	PagePath        string  `json:"pagePath"`
	Count           float64 `json:"count"`
	UniquePageviews int64   `json:"uniquePageviews"`
	Per100kViews    float64 `json:"per100kViews"`
	Normalised      float64 `json:"normalised"`
}

// NewSummary builds a Summary from run, keeping topN pages per ranking.
func NewSummary(run *Run, topN int) *Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}
	s := &Summary{
		RunID:         run.ID,
		StartedAt:     run.StartedAt,
		WindowFrom:    run.Window.StartAt(),
		WindowTo:      run.Window.EndAt(),
		TotalRows:     len(run.Rows),
		Families:      len(run.Families),
		FetchFailures: run.FetchFailures,
		ArchivePath:   run.ArchivePath,
		Published:     run.Published,
		Error:         run.ErrorMessage,
	}

	var problems, searches []RankedPage
	for _, row := range run.Rows {
		if row.UniquePageviews != nil {
			s.RowsWithPageviews++
		}
		if row.ProblemsPer100kViews != nil && row.ProblemsNormalised != nil {
			s.RowsWithProblemRate++
			problems = append(problems, ranked(row, row.ProblemReports, row.ProblemsPer100kViews, row.ProblemsNormalised))
		}
		if row.SearchesPer100kViews != nil && row.SearchesNormalised != nil {
			s.RowsWithSearchRate++
			searches = append(searches, ranked(row, row.SearchUniques, row.SearchesPer100kViews, row.SearchesNormalised))
		}
	}
	s.TopProblems = top(problems, topN)
	s.TopSearches = top(searches, topN)
	return s
}

// HasRankings reports whether either ranking has entries.
func (s *Summary) HasRankings() bool {
	return len(s.TopProblems) > 0 || len(s.TopSearches) > 0
}

func ranked(row *OutputRow, count, rate, normalised *float64) RankedPage {
	p := RankedPage{
		PagePath:     row.PagePath,
		Per100kViews: *rate,
		Normalised:   *normalised,
	}
	if count != nil {
		p.Count = *count
	}
	if row.UniquePageviews != nil {
		p.UniquePageviews = *row.UniquePageviews
	}
	return p
}

func top(pages []RankedPage, n int) []RankedPage {
	slices.SortStableFunc(pages, func(a, b RankedPage) int {
		if c := cmp.Compare(b.Normalised, a.Normalised); c != 0 {
			return c
		}
		return cmp.Compare(a.PagePath, b.PagePath)
	})
	if len(pages) > n {
		pages = pages[:n]
	}
	return pages
}
