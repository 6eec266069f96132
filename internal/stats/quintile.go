package stats

import (
	"cmp"
	"slices"

	"github.com/nao1215/infostats/internal/model"
)

// quintiles is the number of bands.
const quintiles = 5

// AssignQuintiles sets ProblemsQuintile and SearchesQuintile.
//
// Rows are ordered by rate ascending with nil rates first, and split by
// position into five bands of len(rows)/5 rows. Rows with a nil rate get a
// nil band. Ties at a boundary fall wherever their position lands.
// The order of rows is not changed.
func AssignQuintiles(rows []*model.OutputRow) {
	band(rows,
		func(r *model.OutputRow) *float64 { return r.ProblemsPer100kViews },
		func(r *model.OutputRow, q *int) { r.ProblemsQuintile = q },
	)
	band(rows,
		func(r *model.OutputRow) *float64 { return r.SearchesPer100kViews },
		func(r *model.OutputRow, q *int) { r.SearchesQuintile = q },
	)
}

func band(rows []*model.OutputRow, get func(*model.OutputRow) *float64, set func(*model.OutputRow, *int)) {
	if len(rows) == 0 {
		return
	}
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b *model.OutputRow) int {
		va, vb := get(a), get(b)
		switch {
		case va == nil && vb == nil:
			return 0
		case va == nil:
			return -1
		case vb == nil:
			return 1
		}
		return cmp.Compare(*va, *vb)
	})

	bound := float64(len(sorted)) / quintiles
	for i, row := range sorted {
		if get(row) == nil {
			set(row, nil)
			continue
		}
		q := int(float64(i)/bound) + 1
		set(row, &q)
	}
}
