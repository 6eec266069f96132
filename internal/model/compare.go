package model

import (
	"cmp"
	"math"
	"slices"
)

// Comparison describes how the rows of one run differ from an earlier run.
type Comparison struct {
	BaseRunID   string `json:"base_run_id"`
	TargetRunID string `json:"target_run_id"`

	// Added are paths present only in the target run.
	Added []string `json:"added"`

	// Removed are paths present only in the base run.
	Removed []string `json:"removed"`

	// Common counts paths present in both runs.
	Common int `json:"common"`

	// Movers are the common paths whose problemsNormalised changed most.
	Movers []Mover `json:"movers,omitempty"`
}

// Mover is a change of problemsNormalised for one path. A nil side means
// the value was not computed in that run.
type Mover struct {
	PagePath string   `json:"pagePath"`
	Before   *float64 `json:"before"`
	After    *float64 `json:"after"`
	Delta    float64  `json:"delta"`
}

// HasChanges reports whether anything differs between the runs.
func (c *Comparison) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.Movers) > 0
}

// Compare compares the rows of base against target and keeps the topN
// largest movers by absolute delta. A value missing on one side counts as 0
// for the delta; paths unchanged in both runs are not movers.
func Compare(base, target *Run, topN int) *Comparison {
	if topN <= 0 {
		topN = DefaultTopN
	}
	c := &Comparison{
		BaseRunID:   base.ID,
		TargetRunID: target.ID,
		Added:       []string{},
		Removed:     []string{},
	}

	before := make(map[string]*OutputRow, len(base.Rows))
	for _, row := range base.Rows {
		before[row.PagePath] = row
	}
	after := make(map[string]bool, len(target.Rows))

	for _, row := range target.Rows {
		after[row.PagePath] = true
		old, ok := before[row.PagePath]
		if !ok {
			c.Added = append(c.Added, row.PagePath)
			continue
		}
		c.Common++
		if sameValue(old.ProblemsNormalised, row.ProblemsNormalised) {
			continue
		}
		c.Movers = append(c.Movers, Mover{
			PagePath: row.PagePath,
			Before:   old.ProblemsNormalised,
			After:    row.ProblemsNormalised,
			Delta:    valueOrZero(row.ProblemsNormalised) - valueOrZero(old.ProblemsNormalised),
		})
	}
	for _, row := range base.Rows {
		if !after[row.PagePath] {
			c.Removed = append(c.Removed, row.PagePath)
		}
	}

	slices.Sort(c.Added)
	slices.Sort(c.Removed)
	slices.SortStableFunc(c.Movers, func(a, b Mover) int {
		if d := cmp.Compare(math.Abs(b.Delta), math.Abs(a.Delta)); d != 0 {
			return d
		}
		return cmp.Compare(a.PagePath, b.PagePath)
	})
	if len(c.Movers) > topN {
		c.Movers = c.Movers[:topN]
	}
	return c
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
