package report

import (
	"io"
	"strconv"

	"github.com/nao1215/infostats/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format, e.g. for a wiki
// page or a pull request comment.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCoverage(md, summary)
	w.writeRanking(md, "Top pages by problem reports", "Problem reports", summary.TopProblems)
	w.writeRanking(md, "Top pages by searches", "Searches", summary.TopSearches)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteComparison outputs the comparison in Markdown format.
func (w *MarkdownWriter) WriteComparison(c *model.Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base run", "`" + c.BaseRunID + "`"},
			{"Target run", "`" + c.TargetRunID + "`"},
			{"Pages in both", strconv.Itoa(c.Common)},
			{"Pages added", strconv.Itoa(len(c.Added))},
			{"Pages removed", strconv.Itoa(len(c.Removed))},
		},
	})
	md.PlainText("")

	if !c.HasChanges() {
		md.Tip("No differences between the runs.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	if len(c.Movers) > 0 {
		md.H2("Largest changes in problemsNormalised")
		md.PlainText("")
		rows := make([][]string, len(c.Movers))
		for i, m := range c.Movers {
			rows[i] = []string{
				"`" + truncateString(m.PagePath, 60) + "`",
				formatOptional(m.Before),
				formatOptional(m.After),
				formatFloat(m.Delta),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Before", "After", "Delta"},
			Rows:   rows,
		})
		md.PlainText("")
	}
	if len(c.Added) > 0 {
		md.H2("Added pages")
		md.PlainText("")
		md.BulletList(c.Added...)
		md.PlainText("")
	}
	if len(c.Removed) > 0 {
		md.H2("Removed pages")
		md.PlainText("")
		md.BulletList(c.Removed...)
		md.PlainText("")
	}
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("Info statistics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + s.RunID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Window", s.WindowFrom + " to " + s.WindowTo},
			{"Rows", formatInt(int64(s.TotalRows))},
			{"Families", strconv.Itoa(s.Families)},
			{"Published", publishedText(s.Published)},
		},
	})
	md.PlainText("")

	switch {
	case s.Error != "":
		md.Cautionf("The run failed: %s", s.Error)
	case s.FetchFailures > 0:
		md.Warningf("%d dataset queries failed; affected values are missing from the rows.", s.FetchFailures)
	default:
		md.Tip("Every dataset query succeeded.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, s *model.Summary) {
	md.H2("Coverage")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Rows with", "Count"},
		Rows: [][]string{
			{"page views", formatInt(int64(s.RowsWithPageviews))},
			{"problems per 100k views", formatInt(int64(s.RowsWithProblemRate))},
			{"searches per 100k views", formatInt(int64(s.RowsWithSearchRate))},
		},
	})
	md.PlainText("")

	if s.TotalRows == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Rows with a page-view count"),
		piechart.WithShowData(true),
	)
	if s.RowsWithPageviews > 0 {
		chart.LabelAndIntValue("With page views", uint64(s.RowsWithPageviews))
	}
	if missing := s.TotalRows - s.RowsWithPageviews; missing > 0 {
		chart.LabelAndIntValue("Without page views", uint64(missing))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeRanking(md *markdown.Markdown, title, countHeader string, pages []model.RankedPage) {
	md.H2(title)
	md.PlainText("")
	if len(pages) == 0 {
		md.PlainText("No page passed the volume thresholds.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			"`" + truncateString(p.PagePath, 60) + "`",
			formatInt(int64(p.Count)),
			formatInt(p.UniquePageviews),
			formatFloat(p.Per100kViews),
			formatFloat(p.Normalised),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Page", countHeader, "Unique page views", "Per 100k views", "Normalised"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [infostats](https://github.com/nao1215/infostats)*")
}

func publishedText(published bool) string {
	if published {
		return "yes"
	}
	return "no"
}
