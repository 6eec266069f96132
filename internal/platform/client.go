package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/nao1215/infostats/internal/metrics"
	"github.com/nao1215/infostats/internal/model"
)

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "infostats/1.0 (+https://github.com/nao1215/infostats)"

// DefaultMaxBodySize bounds how much of a response body is read.
const DefaultMaxBodySize = 64 * 1024 * 1024

// pagePathKey is the grouping key of every query.
const pagePathKey = "pagePath"

// Query describes one read against a dataset.
// When both filters are set only FilterBy is used.
type Query struct {
	// Dataset is the dataset name, e.g. "page-contacts".
	Dataset string

	// Collect is the aggregate to return, e.g. "total:sum".
	Collect string

	// Window bounds the query.
	Window model.Window

	// FilterBy restricts the result to one exact page path.
	FilterBy string

	// FilterByPrefix restricts the result to paths starting with "/" + prefix.
	FilterByPrefix string
}

// Client reads aggregated records from the statistics service.
type Client struct {
	client      *http.Client
	baseURL     string
	group       string
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
	metrics     *metrics.Metrics

	failures atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxBodySize limits the response body size.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records query outcomes in m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Client for the data group at baseURL,
// e.g. "https://www.performance.service.gov.uk/data" and "govuk-info".
func NewClient(baseURL, group string, opts ...ClientOption) *Client {
	c := &Client{
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		group:       group,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// readParams is the query string of a read request.
type readParams struct {
	GroupBy        string `url:"group_by"`
	Period         string `url:"period"`
	StartAt        string `url:"start_at"`
	EndAt          string `url:"end_at"`
	Collect        string `url:"collect"`
	FilterBy       string `url:"filter_by,omitempty"`
	FilterByPrefix string `url:"filter_by_prefix,omitempty"`
}

func (q Query) params() readParams {
	p := readParams{
		GroupBy: pagePathKey,
		Period:  "day",
		StartAt: q.Window.StartAt(),
		EndAt:   q.Window.EndAt(),
		Collect: q.Collect,
	}
	switch {
	case q.FilterBy != "":
		p.FilterBy = pagePathKey + ":" + q.FilterBy
	case q.FilterByPrefix != "":
		p.FilterByPrefix = pagePathKey + ":/" + strings.TrimPrefix(q.FilterByPrefix, "/")
	}
	return p
}

// URL returns the request URL for q.
func (c *Client) URL(q Query) (string, error) {
	v, err := query.Values(q.params())
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.group, url.PathEscape(q.Dataset), v.Encode()), nil
}

// Fetch runs q and returns its records. Any failure is logged and yields
// an empty result. The records may contain duplicate paths.
func (c *Client) Fetch(ctx context.Context, q Query) []model.MetricRecord {
	start := time.Now()
	records, err := c.Query(ctx, q)
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Warn("dataset query failed",
			"dataset", q.Dataset,
			"filter_by", q.FilterBy,
			"filter_by_prefix", q.FilterByPrefix,
			"error", err,
		)
		c.metrics.ObserveQuery(q.Dataset, metrics.OutcomeError, 0, elapsed)
		c.failures.Add(1)
		return []model.MetricRecord{}
	}

	outcome := metrics.OutcomeOK
	if len(records) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	c.metrics.ObserveQuery(q.Dataset, outcome, len(records), elapsed)
	c.logger.Debug("dataset query",
		"dataset", q.Dataset,
		"filter_by", q.FilterBy,
		"filter_by_prefix", q.FilterByPrefix,
		"records", len(records),
		"elapsed", elapsed,
	)
	return records
}

// Failures returns how many Fetch calls have degraded to an empty result.
func (c *Client) Failures() int {
	return int(c.failures.Load())
}

// Query runs q and returns its records or an error.
func (c *Client) Query(ctx context.Context, q Query) ([]model.MetricRecord, error) {
	u, err := c.URL(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}
	return parseRecords(body, q.Collect)
}

// response is the read API envelope.
type response struct {
	Data    *[]map[string]json.RawMessage `json:"data"`
	Warning string                        `json:"warning"`
	Status  string                        `json:"status"`
	Message string                        `json:"message"`
}

// parseRecords decodes a read API body. Items without a string pagePath
// are skipped; a missing, null or non-numeric value becomes a nil Value.
func parseRecords(body []byte, field string) ([]model.MetricRecord, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if r.Status == "error" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, r.Message)
	}
	if r.Data == nil {
		return nil, ErrMissingData
	}

	records := make([]model.MetricRecord, 0, len(*r.Data))
	for _, item := range *r.Data {
		var path string
		if err := json.Unmarshal(item[pagePathKey], &path); err != nil || path == "" {
			continue
		}
		rec := model.MetricRecord{PagePath: path, Field: field}
		if raw, ok := item[field]; ok {
			var v *float64
			if err := json.Unmarshal(raw, &v); err == nil {
				rec.Value = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, code)
	}
}
