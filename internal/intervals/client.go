package intervals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"peloton-planner/internal/metrics"
)

const (
	DefaultBaseURL = "https://intervals.icu/api/v1"
	DefaultTimeout = 30 * time.Second

	// SelfAthlete addresses the profile that owns the API key
	SelfAthlete = "0"

	basicAuthUser = "API_KEY"
)

// HTTPError represents a non-2xx response from Intervals.icu
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("intervals.icu request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client is an Intervals.icu API client. Credentials are supplied per call
// since each athlete carries their own API key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a new Intervals.icu API client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// doRequest performs one authenticated request and returns the response body.
// There are no retries: a failed call surfaces immediately.
func (c *Client) doRequest(ctx context.Context, op, method, path, apiKey string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(basicAuthUser, apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.IntervalsAPIRequestsTotal.WithLabelValues(op, "error").Inc()
		metrics.IntervalsAPIRequestDuration.WithLabelValues(op, "error").Observe(duration.Seconds())
		c.logger.Error("request failed", "operation", op, "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	metrics.IntervalsAPIRequestsTotal.WithLabelValues(op, status).Inc()
	metrics.IntervalsAPIRequestDuration.WithLabelValues(op, status).Observe(duration.Seconds())

	c.logger.Info("intervals_api_request",
		"operation", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func dateRange(oldest, newest string) string {
	params := url.Values{
		"oldest": {oldest},
		"newest": {newest},
	}
	return params.Encode()
}
