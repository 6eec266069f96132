// Package model defines the data structures shared by the info-statistics job.
//
// This package contains the following main types:
//   - MetricRecord: one raw record returned by a dataset query
//   - OutputRow: the per-URL record that is archived and published
//   - Window: the trailing date range a run covers
//   - Page: a page known to the URL-discovery service (family roots)
//   - Run: the state accumulated by a single pipeline execution
//   - Summary: a condensed view of a Run used by the report writers
//
// The models are serializable to JSON for archiving, publishing and the
// run history database.
package model
