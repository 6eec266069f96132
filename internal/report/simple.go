package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/infostats/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs plain-text summaries for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints ranking sections even when they have no entries.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(s *model.Summary) (int, error) {
	var sb strings.Builder

	banner(&sb, "INFO STATISTICS")
	fmt.Fprintf(&sb, "Run:            %s\n", s.RunID)
	fmt.Fprintf(&sb, "Started:        %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Window:         %s .. %s\n", s.WindowFrom, s.WindowTo)
	fmt.Fprintf(&sb, "Rows:           %s\n", formatInt(int64(s.TotalRows)))
	fmt.Fprintf(&sb, "Families:       %d\n", s.Families)
	if s.ArchivePath != "" {
		fmt.Fprintf(&sb, "Archive:        %s\n", s.ArchivePath)
	}
	switch {
	case s.Error != "":
		fmt.Fprintf(&sb, "Status:         ERROR - %s\n", s.Error)
	case s.Published:
		sb.WriteString("Status:         Published\n")
	default:
		sb.WriteString("Status:         Complete (not published)\n")
	}
	if s.FetchFailures > 0 {
		fmt.Fprintf(&sb, "Failed queries: %d\n", s.FetchFailures)
	}
	sb.WriteString("\n")

	section(&sb, "COVERAGE")
	fmt.Fprintf(&sb, "  with page views:          %s\n", formatInt(int64(s.RowsWithPageviews)))
	fmt.Fprintf(&sb, "  with problems per 100k:   %s\n", formatInt(int64(s.RowsWithProblemRate)))
	fmt.Fprintf(&sb, "  with searches per 100k:   %s\n", formatInt(int64(s.RowsWithSearchRate)))
	sb.WriteString("\n")

	w.writeRanking(&sb, "TOP PROBLEM REPORTS", s.TopProblems)
	w.writeRanking(&sb, "TOP SEARCHES", s.TopSearches)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	return io.WriteString(w.output, sb.String())
}

// WriteComparison outputs the comparison in human-readable format.
func (w *SimpleWriter) WriteComparison(c *model.Comparison) (int, error) {
	var sb strings.Builder

	banner(&sb, "RUN COMPARISON")
	fmt.Fprintf(&sb, "Base:    %s\n", c.BaseRunID)
	fmt.Fprintf(&sb, "Target:  %s\n", c.TargetRunID)
	fmt.Fprintf(&sb, "Common:  %d\n", c.Common)
	fmt.Fprintf(&sb, "Added:   %d\n", len(c.Added))
	fmt.Fprintf(&sb, "Removed: %d\n\n", len(c.Removed))

	if !c.HasChanges() {
		sb.WriteString("No differences.\n\n")
	}
	if len(c.Movers) > 0 {
		section(&sb, "LARGEST CHANGES IN problemsNormalised")
		for _, m := range c.Movers {
			fmt.Fprintf(&sb, "  %-50s %14s -> %-14s (%s)\n",
				truncateString(m.PagePath, 50), formatOptional(m.Before), formatOptional(m.After), signed(m.Delta))
		}
		sb.WriteString("\n")
	}
	listPaths(&sb, "ADDED", "+", c.Added)
	listPaths(&sb, "REMOVED", "-", c.Removed)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeRanking(sb *strings.Builder, title string, pages []model.RankedPage) {
	if len(pages) == 0 && !w.showEmpty {
		return
	}
	section(sb, title)
	if len(pages) == 0 {
		sb.WriteString("  No pages\n\n")
		return
	}
	for i, p := range pages {
		fmt.Fprintf(sb, "  %2d. %s\n", i+1, p.PagePath)
		fmt.Fprintf(sb, "      count %s, views %s, per 100k %s, normalised %s\n",
			formatInt(int64(p.Count)), formatInt(p.UniquePageviews), formatFloat(p.Per100kViews), formatFloat(p.Normalised))
	}
	sb.WriteString("\n")
}

func listPaths(sb *strings.Builder, title, marker string, paths []string) {
	if len(paths) == 0 {
		return
	}
	section(sb, title)
	for _, p := range paths {
		fmt.Fprintf(sb, "  [%s] %s\n", marker, p)
	}
	sb.WriteString("\n")
}

func banner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func signed(v float64) string {
	if v > 0 {
		return "+" + formatFloat(v)
	}
	return formatFloat(v)
}
