package family

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/nao1215/infostats/internal/model"
)

// ErrNoSource is returned by Combined when it has no resolvers.
var ErrNoSource = errors.New("no family source configured")

// Resolver returns the family root pages.
type Resolver interface {
	Resolve(ctx context.Context) ([]model.Page, error)
}

// Static resolves a fixed list of root paths.
type Static struct {
	roots []string
}

// NewStatic creates a Static resolver.
func NewStatic(roots ...string) *Static {
	return &Static{roots: slices.Clone(roots)}
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context) ([]model.Page, error) {
	pages := make([]model.Page, 0, len(s.roots))
	for _, r := range s.roots {
		if r == "" {
			continue
		}
		pages = append(pages, model.Page{Link: r})
	}
	return pages, nil
}

// File resolves roots from a JSON array of {link, format, title} objects,
// as saved from the search API. Only pages with one of the formats are
// returned.
type File struct {
	path    string
	formats []string
}

// NewFile creates a File resolver.
func NewFile(path string, formats ...string) *File {
	if len(formats) == 0 {
		formats = []string{model.FormatSmartAnswer}
	}
	return &File{path: path, formats: formats}
}

// Resolve implements Resolver.
func (f *File) Resolve(_ context.Context) ([]model.Page, error) {
	data, err := os.ReadFile(f.path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	var pages []model.Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	out := make([]model.Page, 0, len(pages))
	for _, p := range pages {
		if p.Link != "" && slices.Contains(f.formats, p.Format) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Combined merges the pages of several resolvers. The first page seen for
// a link wins, except that a page with metadata replaces one without.
// A resolver error is returned with whatever was resolved so far.
type Combined struct {
	resolvers []Resolver
}

// NewCombined creates a Combined resolver.
func NewCombined(resolvers ...Resolver) *Combined {
	return &Combined{resolvers: resolvers}
}

// Resolve implements Resolver.
func (c *Combined) Resolve(ctx context.Context) ([]model.Page, error) {
	if len(c.resolvers) == 0 {
		return nil, ErrNoSource
	}
	index := make(map[string]int)
	var pages []model.Page
	var errs []error
	for _, r := range c.resolvers {
		found, err := r.Resolve(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		for _, p := range found {
			i, ok := index[p.Link]
			if !ok {
				index[p.Link] = len(pages)
				pages = append(pages, p)
				continue
			}
			if pages[i].Format == "" && pages[i].Title == "" {
				pages[i] = p
			}
		}
	}
	return pages, errors.Join(errs...)
}
