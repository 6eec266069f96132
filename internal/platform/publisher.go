package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nao1215/infostats/internal/metrics"
	"github.com/nao1215/infostats/internal/model"
)

// Publisher defaults.
const (
	DefaultPublishAttempts = 3
	DefaultPublishBackoff  = 2 * time.Second
)

// Publisher replaces the contents of a dataset on the statistics service.
type Publisher struct {
	client      *http.Client
	baseURL     string
	group       string
	token       string
	userAgent   string
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublishHTTPClient sets the HTTP client used for requests.
func WithPublishHTTPClient(hc *http.Client) PublisherOption {
	return func(p *Publisher) {
		p.client = hc
	}
}

// WithRetry sets the number of attempts and the initial backoff, which
// doubles after each retry.
func WithRetry(attempts int, initial time.Duration) PublisherOption {
	return func(p *Publisher) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
		if initial >= 0 {
			p.backoff = initial
		}
	}
}

// WithPublishLogger sets the logger.
func WithPublishLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithPublishMetrics records publish outcomes in m.
func WithPublishMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a Publisher for the data group at baseURL that
// authenticates with token.
func NewPublisher(baseURL, group, token string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:      &http.Client{Timeout: 5 * time.Minute},
		baseURL:     strings.TrimRight(baseURL, "/"),
		group:       group,
		token:       token,
		userAgent:   DefaultUserAgent,
		maxAttempts: DefaultPublishAttempts,
		backoff:     DefaultPublishBackoff,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the write URL of dataset.
func (p *Publisher) URL(dataset string) string {
	return fmt.Sprintf("%s/%s/%s", p.baseURL, p.group, dataset)
}

// Publish posts rows to dataset as one JSON array.
func (p *Publisher) Publish(ctx context.Context, dataset string, rows []*model.OutputRow) error {
	if rows == nil {
		rows = []*model.OutputRow{}
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	if err := p.send(ctx, http.MethodPost, dataset, body); err != nil {
		return fmt.Errorf("failed to publish %d rows to %s: %w", len(rows), dataset, err)
	}
	p.logger.Info("published dataset", "dataset", dataset, "rows", len(rows))
	return nil
}

// Empty clears dataset by replacing it with an empty array.
func (p *Publisher) Empty(ctx context.Context, dataset string) error {
	if err := p.send(ctx, http.MethodPut, dataset, []byte("[]")); err != nil {
		return fmt.Errorf("failed to empty %s: %w", dataset, err)
	}
	p.logger.Info("emptied dataset", "dataset", dataset)
	return nil
}

// errRetryable marks failures worth another attempt.
var errRetryable = errors.New("retryable")

func (p *Publisher) send(ctx context.Context, method, dataset string, body []byte) error {
	if p.token == "" {
		return ErrMissingToken
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := p.do(ctx, method, dataset, body)
		if err == nil {
			p.metrics.ObservePublish(metrics.OutcomeOK)
			return nil
		}
		p.metrics.ObservePublish(metrics.OutcomeError)
		if !errors.Is(err, errRetryable) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("publish attempt failed, retrying",
			"dataset", dataset,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}
	return backoff.RetryNotify(operation, p.retryPolicy(ctx), notify)
}

// retryPolicy doubles the wait after each failed attempt and stops after
// maxAttempts attempts or when ctx is done.
func (p *Publisher) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxAttempts-1)), ctx) //nolint:gosec // maxAttempts is positive
}

func (p *Publisher) do(ctx context.Context, method, dataset string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, p.URL(dataset), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: request failed: %w", errRetryable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %w: %d", errRetryable, ErrUnexpectedStatus, resp.StatusCode)
	}
	return statusError(resp.StatusCode)
}
