package family

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nao1215/infostats/internal/model"
)

// Search API defaults.
const (
	DefaultSearchURL = "https://www.gov.uk/api/search.json"
	DefaultPageSize  = 1000

	// maxPages stops paging through a result set that never ends.
	maxPages = 100
)

// Search resolves roots by asking the site search API for every page of
// the configured formats.
type Search struct {
	client   *http.Client
	endpoint string
	formats  []string
	pageSize int
	logger   *slog.Logger
}

// SearchOption configures a Search resolver.
type SearchOption func(*Search)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) SearchOption {
	return func(s *Search) {
		s.client = hc
	}
}

// WithPageSize sets how many results are requested per call.
func WithPageSize(n int) SearchOption {
	return func(s *Search) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SearchOption {
	return func(s *Search) {
		s.logger = logger
	}
}

// NewSearch creates a Search resolver for endpoint. With no formats it
// looks for smart answers.
func NewSearch(endpoint string, formats []string, opts ...SearchOption) *Search {
	if endpoint == "" {
		endpoint = DefaultSearchURL
	}
	if len(formats) == 0 {
		formats = []string{model.FormatSmartAnswer}
	}
	s := &Search{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: endpoint,
		formats:  formats,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type searchResponse struct {
	Results []model.Page `json:"results"`
	Total   int          `json:"total"`
}

// Resolve implements Resolver.
func (s *Search) Resolve(ctx context.Context) ([]model.Page, error) {
	var pages []model.Page
	for _, format := range s.formats {
		found, err := s.resolveFormat(ctx, format)
		if err != nil {
			return pages, err
		}
		pages = append(pages, found...)
	}
	s.logger.Debug("resolved family roots", "formats", s.formats, "roots", len(pages))
	return pages, nil
}

func (s *Search) resolveFormat(ctx context.Context, format string) ([]model.Page, error) {
	var pages []model.Page
	start := 0
	for range maxPages {
		resp, err := s.page(ctx, format, start)
		if err != nil {
			return pages, err
		}
		for _, p := range resp.Results {
			if p.Link == "" {
				continue
			}
			if p.Format == "" {
				p.Format = format
			}
			pages = append(pages, p)
		}
		start += len(resp.Results)
		if len(resp.Results) == 0 || start >= resp.Total {
			break
		}
	}
	return pages, nil
}

func (s *Search) page(ctx context.Context, format string, start int) (*searchResponse, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search URL: %w", err)
	}
	q := u.Query()
	q.Set("filter_format", format)
	q["fields"] = []string{"link", "title", "format"}
	q.Set("count", strconv.Itoa(s.pageSize))
	q.Set("start", strconv.Itoa(start))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &sr, nil
}
