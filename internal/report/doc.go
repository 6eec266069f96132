// Package report writes run results.
//
// The archive writer stores the full row set of a run as the
// data-YYYY-MM-DD.json file that can be republished later. The summary
// writers render a condensed view of a run for people:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with tables and a mermaid chart
//   - JSONWriter: JSON for other tools
//
// Summary writers implement Writer, so they can be combined with MultiWriter.
package report
