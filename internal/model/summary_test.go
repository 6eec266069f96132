package model

import "testing"

func TestNewSummary(t *testing.T) {
	t.Parallel()

	run := NewRun("run-1", testWindow())
	for i, path := range []string{"/a", "/b", "/c"} {
		row := NewOutputRow(path, run.Window)
		row.UniquePageviews = Int(10000)
		rate := float64(i+1) * 100
		row.ProblemReports = Float(float64(i + 1))
		row.ProblemsPer100kViews = Float(rate)
		row.ProblemsNormalised = Float(rate * float64(i+1))
		run.Rows = append(run.Rows, row)
	}
	run.Rows = append(run.Rows, NewOutputRow("/d", run.Window))
	run.Families = []Page{{Link: "/a"}}
	run.FetchFailures = 2

	s := NewSummary(run, 2)

	if s.TotalRows != 4 {
		t.Errorf("TotalRows = %d, want 4", s.TotalRows)
	}
	if s.RowsWithPageviews != 3 {
		t.Errorf("RowsWithPageviews = %d, want 3", s.RowsWithPageviews)
	}
	if s.RowsWithProblemRate != 3 {
		t.Errorf("RowsWithProblemRate = %d, want 3", s.RowsWithProblemRate)
	}
	if s.RowsWithSearchRate != 0 {
		t.Errorf("RowsWithSearchRate = %d, want 0", s.RowsWithSearchRate)
	}
	if s.Families != 1 || s.FetchFailures != 2 {
		t.Errorf("unexpected counters: families=%d failures=%d", s.Families, s.FetchFailures)
	}
	if len(s.TopProblems) != 2 {
		t.Fatalf("expected 2 ranked pages, got %d", len(s.TopProblems))
	}
	if s.TopProblems[0].PagePath != "/c" || s.TopProblems[1].PagePath != "/b" {
		t.Errorf("unexpected ranking: %+v", s.TopProblems)
	}
	if !s.HasRankings() {
		t.Error("expected HasRankings to be true")
	}
}
