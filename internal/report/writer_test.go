package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/infostats/internal/model"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *model.Summary {
	w := model.NewWindow(time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC), 42)
	run := model.NewRun("run-1", w)

	visa := model.NewOutputRow("/check-uk-visa", w)
	visa.UniquePageviews = model.Int(10000)
	visa.ProblemReports = model.Float(469)
	visa.ProblemsPer100kViews = model.Float(4690)
	visa.ProblemsNormalised = model.Float(2199610)
	visa.SearchUniques = model.Float(930)
	visa.SearchesPer100kViews = model.Float(9300)
	visa.SearchesNormalised = model.Float(8649000)

	tax := model.NewOutputRow("/council-tax", w)
	tax.ProblemReports = model.Float(1)

	run.Rows = []*model.OutputRow{visa, tax}
	run.Families = []model.Page{{Link: "/check-uk-visa"}}
	run.Published = true
	run.ArchivePath = "/tmp/data-2014-06-30.json"
	return model.NewSummary(run, 5)
}

func createTestComparison() *model.Comparison {
	return &model.Comparison{
		BaseRunID:   "run-0",
		TargetRunID: "run-1",
		Added:       []string{"/new-page"},
		Removed:     []string{"/old-page"},
		Common:      3,
		Movers: []model.Mover{
			{PagePath: "/check-uk-visa", Before: model.Float(1000), After: model.Float(2199610), Delta: 2198610},
		},
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and coverage", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"INFO STATISTICS",
			"run-1",
			"2014-05-19T00:00:00Z .. 2014-06-30T00:00:00Z",
			"Published",
			"COVERAGE",
			"/tmp/data-2014-06-30.json",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("writes rankings with grouped digits", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "TOP PROBLEM REPORTS") || !strings.Contains(output, "TOP SEARCHES") {
			t.Error("expected both ranking sections")
		}
		if !strings.Contains(output, "2,199,610.0") {
			t.Errorf("expected grouped normalised value:\n%s", output)
		}
		if !strings.Contains(output, "views 10,000") {
			t.Errorf("expected grouped page views:\n%s", output)
		}
	})

	t.Run("hides empty rankings unless asked", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.TopProblems = nil
		s.TopSearches = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "TOP PROBLEM REPORTS") {
			t.Error("did not expect empty ranking")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No pages") {
			t.Error("expected empty ranking placeholder")
		}
	})

	t.Run("shows errors and failed queries", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.Error = "publish failed"
		s.FetchFailures = 4

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "ERROR - publish failed") {
			t.Error("expected error status")
		}
		if !strings.Contains(buf.String(), "Failed queries: 4") {
			t.Error("expected failed query count")
		}
	})

	t.Run("writes comparison", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"RUN COMPARISON", "[+] /new-page", "[-] /old-page", "+2,198,610.0"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes compact summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.Summary
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.RunID != "run-1" || decoded.TotalRows != 2 {
			t.Errorf("unexpected summary %+v", decoded)
		}
		if len(decoded.TopProblems) != 1 || decoded.TopProblems[0].PagePath != "/check-uk-visa" {
			t.Errorf("unexpected ranking %+v", decoded.TopProblems)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected a single line of compact JSON")
		}
	})

	t.Run("pretty prints", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"base_run_id\": \"run-0\"") {
			t.Errorf("expected indented output:\n%s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Info statistics",
			"## Coverage",
			"## Top pages by problem reports",
			"`/check-uk-visa`",
			"mermaid",
			"With page views",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("warns about failed queries", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.FetchFailures = 2

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "2 dataset queries failed") {
			t.Errorf("expected warning:\n%s", buf.String())
		}
	})

	t.Run("writes comparison", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"# Run comparison", "## Added pages", "/old-page", "2,198,610.0"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("comparison without changes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		c := &model.Comparison{BaseRunID: "a", TargetRunID: "b", Common: 1}
		if _, err := NewMarkdownWriter(&buf).WriteComparison(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No differences") {
			t.Errorf("expected no-difference tip:\n%s", buf.String())
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.Summary) (int, error) { return 0, errors.New("boom") }

func (failingWriter) WriteComparison(*model.Comparison) (int, error) { return 0, errors.New("boom") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
		n, err := mw.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&buf))
		if _, err := mw.WriteComparison(createTestComparison()); err == nil {
			t.Error("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"/a-very-long-page-path", 10, "/a-very..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
