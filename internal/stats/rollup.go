package stats

import (
	"cmp"
	"slices"
	"strings"

	"github.com/nao1215/infostats/internal/model"
)

// Rollup attributes the values of family descendants to their roots.
//
// A path belongs to a root when it equals the root or lies below it on a
// path-segment boundary ("/a/x" is under "/a", "/ab" is not). When roots
// nest, the deepest matching root owns the path.
type Rollup struct {
	// roots is ordered longest first so the first match is the deepest.
	roots []string
}

// NewRollup creates a Rollup over the given family roots.
// Empty roots and "/" are ignored, trailing slashes are trimmed and
// duplicates are removed.
func NewRollup(roots []string) *Rollup {
	seen := make(map[string]bool, len(roots))
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		root = cleanRoot(root)
		if root == "" || root == "/" || seen[root] {
			continue
		}
		seen[root] = true
		cleaned = append(cleaned, root)
	}
	slices.SortFunc(cleaned, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return &Rollup{roots: cleaned}
}

// Roots returns the cleaned roots, deepest first.
func (r *Rollup) Roots() []string {
	return slices.Clone(r.roots)
}

// Owner returns the root that path belongs to. Matching is on path-segment
// boundaries rather than a raw string prefix, so "/ab" is not owned by "/a".
func (r *Rollup) Owner(path string) (string, bool) {
	for _, root := range r.roots {
		if path == root || strings.HasPrefix(path, descendantPrefix(root)) {
			return root, true
		}
	}
	return "", false
}

// Filter returns the paths that are not strict descendants of a root,
// in their original order.
func (r *Rollup) Filter(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if owner, ok := r.Owner(path); ok && owner != path {
			continue
		}
		out = append(out, path)
	}
	return out
}

// Apply rolls up records whose Field equals field and returns the new
// working set. Input order is preserved.
//
//   - each root record is replaced by one carrying the family total
//     (the root's own value plus every descendant's value)
//   - strict descendants are dropped
//   - a family with descendants but no root record gets a root record in
//     place of its first descendant
//   - records with another Field, or outside every family, pass through
//
// The input slice is not modified.
func (r *Rollup) Apply(field string, records []model.MetricRecord) []model.MetricRecord {
	if len(r.roots) == 0 {
		return slices.Clone(records)
	}

	totals := make(map[string]float64, len(r.roots))
	contributed := make(map[string]bool, len(r.roots))
	hasRootRecord := make(map[string]bool, len(r.roots))
	owners := make([]string, len(records))

	for i, rec := range records {
		if rec.Field != field {
			continue
		}
		owner, ok := r.Owner(rec.PagePath)
		if !ok {
			continue
		}
		owners[i] = owner
		if rec.PagePath == owner {
			hasRootRecord[owner] = true
		}
		if rec.Value != nil {
			totals[owner] += *rec.Value
			contributed[owner] = true
		}
	}

	out := make([]model.MetricRecord, 0, len(records))
	synthesized := make(map[string]bool)
	for i, rec := range records {
		owner := owners[i]
		switch {
		case owner == "":
			out = append(out, rec)
		case rec.PagePath == owner:
			if contributed[owner] {
				rec.Value = model.Float(totals[owner])
			}
			out = append(out, rec)
		case !hasRootRecord[owner] && !synthesized[owner] && contributed[owner]:
			synthesized[owner] = true
			out = append(out, model.NewMetricRecord(owner, field, totals[owner]))
		}
	}
	return out
}

func cleanRoot(root string) string {
	root = strings.TrimSpace(root)
	if len(root) > 1 {
		root = strings.TrimRight(root, "/")
		if root == "" {
			root = "/"
		}
	}
	return root
}

func descendantPrefix(root string) string {
	return strings.TrimSuffix(root, "/") + "/"
}
