// Package eonet fetches natural hazard events from NASA's Earth Observatory
// Natural Event Tracker (EONET) API.
package eonet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
)

// DefaultBaseURL is the public EONET v3 endpoint.
const DefaultBaseURL = "https://eonet.gsfc.nasa.gov/api/v3"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 32 << 20

// StatusError is returned when EONET answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("eonet API error: status %d: %s", e.Code, e.Body)
}

// IsRateLimited reports whether err is a 429 from EONET.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}

// Client fetches and normalizes the EONET events feed.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an EONET client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch retrieves the events selected by q and normalizes them.
func (c *Client) Fetch(ctx context.Context, q domain.FeedQuery) (domain.FeedBatch, error) {
	if err := q.Validate(); err != nil {
		return domain.FeedBatch{}, err
	}

	fullURL := c.baseURL + "/events"
	if params := c.params(q); len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.FeedBatch{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FeedAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.FeedBatch{}, fmt.Errorf("eonet request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.FeedBatch{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.FeedBatch{}, fmt.Errorf("read eonet response: %w", err)
	}
	batch, err := domain.ParseFeed(data)
	if err != nil {
		return domain.FeedBatch{}, err
	}

	c.logger.Debug("fetched hazard feed",
		"query", q.Key(),
		"events", len(batch.Events),
		"dropped", batch.Dropped,
	)
	return batch, nil
}

func (c *Client) params(q domain.FeedQuery) url.Values {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", strings.ToLower(q.Status))
	}
	if q.Days > 0 {
		params.Set("days", strconv.Itoa(q.Days))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if cat := strings.TrimSpace(q.Category); cat != "" {
		params.Set("category", cat)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}
