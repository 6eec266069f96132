package stats

import (
	"fmt"
	"slices"

	"github.com/nao1215/infostats/internal/model"
)

// UniquePaths returns the distinct page paths of records in first-seen order.
func UniquePaths(records []model.MetricRecord) []string {
	seen := make(map[string]bool, len(records))
	paths := make([]string, 0, len(records))
	for _, rec := range records {
		if seen[rec.PagePath] {
			continue
		}
		seen[rec.PagePath] = true
		paths = append(paths, rec.PagePath)
	}
	return paths
}

// UsefulPaths returns the sorted union of the paths in every record set.
// Only paths with some engagement signal end up in the output, so callers
// pass the problem-report and search datasets, not page views.
func UsefulPaths(sets ...[]model.MetricRecord) []string {
	var all []model.MetricRecord
	for _, set := range sets {
		all = append(all, set...)
	}
	paths := UniquePaths(all)
	slices.Sort(paths)
	return paths
}

// InitialiseRows creates one row per path, each seeded with the window
// metadata and nil measures.
func InitialiseRows(paths []string, w model.Window) []*model.OutputRow {
	rows := make([]*model.OutputRow, 0, len(paths))
	for _, path := range paths {
		rows = append(rows, model.NewOutputRow(path, w))
	}
	return rows
}

// Fold copies record values into the measure field of the row with the
// same path. Records without a matching row are ignored. When several
// records share a path the last present value wins; a nil value never
// replaces a present one. It returns the number of rows that received a value.
func Fold(rows []*model.OutputRow, measure string, records []model.MetricRecord) (int, error) {
	if !model.IsKnownMeasure(measure) {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownMeasure, measure)
	}

	index := indexRows(rows)
	filled := make(map[string]bool)
	for _, rec := range records {
		row, ok := index[rec.PagePath]
		if !ok || rec.Value == nil {
			continue
		}
		if err := row.SetMeasure(measure, rec.Value); err != nil {
			return 0, err
		}
		filled[rec.PagePath] = true
	}
	return len(filled), nil
}

// AttachPages copies format and title from pages onto matching rows.
func AttachPages(rows []*model.OutputRow, pages []model.Page) int {
	index := indexRows(rows)
	n := 0
	for _, p := range pages {
		if row, ok := index[p.Link]; ok {
			row.SetPage(p)
			n++
		}
	}
	return n
}

// MissingPageviews returns the paths of rows without a page-view count.
func MissingPageviews(rows []*model.OutputRow) []string {
	var paths []string
	for _, row := range rows {
		if row.UniquePageviews == nil {
			paths = append(paths, row.PagePath)
		}
	}
	return paths
}

func indexRows(rows []*model.OutputRow) map[string]*model.OutputRow {
	index := make(map[string]*model.OutputRow, len(rows))
	for _, row := range rows {
		index[row.PagePath] = row
	}
	return index
}
