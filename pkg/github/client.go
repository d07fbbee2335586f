// Package github provides the rate-limit-aware GitHub search client.
//
// The client issues one request at a time and absorbs GitHub's two rate
// limit failure modes: the primary limit (hard quota with a server-provided
// reset timestamp, handled with a single timed retry) and the secondary
// limit (opaque short-term throttle, handled with capped exponential
// backoff). Progress during waits is reported through a StatusReporter so
// the display layer is never silent for more than a few seconds.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	apiBase = "https://api.github.com"

	// primaryResetBuffer pads the server-provided reset time; the quota
	// window is not always reopened at the exact reset second.
	primaryResetBuffer = 5 * time.Second

	// statusInterval caps how long a wait may go unreported.
	statusInterval = 5 * time.Second

	secondaryInitialBackoff = 60 * time.Second
	secondaryMaxAttempts    = 5
)

// ErrClientClosed is returned when a request is issued on a closed client.
// This is a programming-contract violation, not a transient condition.
var ErrClientClosed = errors.New("github: client is closed")

// StatusReporter receives human-readable progress text. The display layer
// implements it; tests capture it.
type StatusReporter interface {
	Status(text string)
}

// StatusFunc adapts a plain function to a StatusReporter.
type StatusFunc func(string)

// Status implements StatusReporter.
func (f StatusFunc) Status(text string) { f(text) }

// Client is the rate-limited GitHub API client. All requests are sequential
// by design: the rate limit budget is shared process-wide, so concurrent
// requests would only exhaust it faster.
type Client struct {
	httpClient *http.Client
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	token      string
	closed     atomic.Bool
}

// Config holds configuration for creating a client.
type Config struct {
	Token       string
	HTTPTimeout time.Duration
}

// New creates a client authenticated with a personal access token.
func New(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		token:      cfg.Token,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Close marks the client as closed. Subsequent requests fail fast with
// ErrClientClosed.
func (c *Client) Close() {
	c.closed.Store(true)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// apiResponse is a fully drained HTTP response. Reading the body up front
// lets the rate limit checks inspect it without consuming the stream.
type apiResponse struct {
	header http.Header
	body   []byte
	status int
}

// message extracts the "message" field GitHub puts in error bodies.
func (r *apiResponse) message() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

func (c *Client) get(ctx context.Context, apiURL string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &apiResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// Search runs a search query against /search/issues and returns the raw
// item payloads. Rate limit responses are absorbed internally; any other
// failure is reported to the sink and returned to the caller.
func (c *Client) Search(ctx context.Context, query string, status StatusReporter) ([]map[string]any, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	apiURL := apiBase + "/search/issues?q=" + query
	slog.Debug("Search request", "component", "api", "query", query)

	resp, err := c.get(ctx, apiURL)
	if err != nil {
		status.Status(fmt.Sprintf("Request failed: %v", err))
		return nil, err
	}

	// Primary limit: the reset time is known, so a single retry after an
	// exact wait suffices. Whatever the retry returns is accepted.
	if resp.status == http.StatusForbidden && remainingQuota(resp.header) == 0 {
		resp, err = c.primaryLimitRetry(ctx, apiURL, resp, status)
		if err != nil {
			status.Status(fmt.Sprintf("Request failed: %v", err))
			return nil, err
		}
	}

	// Secondary limit: opaque throttle with no reset time, so exponential
	// backoff with a retry cap bounds the worst-case wait.
	if resp.status == http.StatusForbidden && isSecondaryLimit(resp) {
		resp, err = c.secondaryLimitBackoff(ctx, apiURL, status)
		if err != nil {
			return nil, err
		}
	}

	switch resp.status {
	case http.StatusOK:
		var payload struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(resp.body, &payload); err != nil {
			return nil, fmt.Errorf("decoding search response: %w", err)
		}
		return payload.Items, nil
	case http.StatusForbidden:
		// Still forbidden after the rate limit handling ran its course;
		// the body carries no items.
		return nil, nil
	default:
		msg := resp.message()
		status.Status(fmt.Sprintf("Received response: %d %s", resp.status, msg))
		return nil, fmt.Errorf("github: search failed with status %d: %s", resp.status, msg)
	}
}

// Reviews fetches the reviews sub-resource for a pull request API URL and
// returns the raw payloads. A non-200 response yields an empty list.
func (c *Client) Reviews(ctx context.Context, prAPIURL string) ([]map[string]any, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	resp, err := c.get(ctx, prAPIURL+"/reviews")
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		slog.Debug("Reviews fetch returned non-200", "url", prAPIURL, "status", resp.status)
		return nil, nil
	}
	var reviews []map[string]any
	if err := json.Unmarshal(resp.body, &reviews); err != nil {
		return nil, fmt.Errorf("decoding reviews response: %w", err)
	}
	return reviews, nil
}

// remainingQuota parses X-RateLimit-Remaining; -1 means absent or unreadable.
func remainingQuota(header http.Header) int {
	value := header.Get("X-RateLimit-Remaining")
	if value == "" {
		return -1
	}
	remaining, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return remaining
}

func isSecondaryLimit(resp *apiResponse) bool {
	return strings.Contains(resp.message(), "secondary rate limit")
}

// primaryLimitRetry sleeps until the server-provided reset time plus a small
// buffer, reporting the countdown, then retries exactly once. The retry's
// response is returned as-is, success or not: primary limit handling never
// loops.
func (c *Client) primaryLimitRetry(ctx context.Context, apiURL string, limited *apiResponse, status StatusReporter) (*apiResponse, error) {
	var wait time.Duration
	if reset, err := strconv.ParseInt(limited.header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		wait = time.Unix(reset, 0).Sub(c.now()) + primaryResetBuffer
	}
	err := c.sleepReporting(ctx, wait, status, "Primary rate limit hit. Sleeping for %d seconds")
	if err != nil {
		return nil, err
	}
	return c.get(ctx, apiURL)
}

// secondaryLimitBackoff retries with exponential backoff: 60s initial wait,
// doubling after every attempt, five attempts total. Every outcome other
// than a 200 counts as a spent attempt.
func (c *Client) secondaryLimitBackoff(ctx context.Context, apiURL string, status StatusReporter) (*apiResponse, error) {
	wait := secondaryInitialBackoff
	var final *apiResponse
	err := retry.Do(
		func() error {
			if err := c.sleepReporting(ctx, wait, status, "Secondary rate limit hit. Sleeping for %d seconds."); err != nil {
				return retry.Unrecoverable(err)
			}
			wait *= 2

			resp, err := c.get(ctx, apiURL)
			if err != nil {
				status.Status(fmt.Sprintf("Request failed during backoff: %v", err))
				return err
			}
			switch resp.status {
			case http.StatusOK:
				final = resp
				return nil
			case http.StatusUnprocessableEntity:
				msg := resp.message()
				status.Status(fmt.Sprintf("Validation failed. Reason: %s", msg))
				return fmt.Errorf("github: validation failed: %s", msg)
			case http.StatusForbidden:
				return errors.New("github: secondary rate limit still in effect")
			default:
				msg := resp.message()
				status.Status(fmt.Sprintf("Received response: %d %s", resp.status, msg))
				return fmt.Errorf("github: unexpected status %d during backoff: %s", resp.status, msg)
			}
		},
		retry.Context(ctx),
		retry.Attempts(secondaryMaxAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return final, nil
}

// sleepReporting sleeps for the full duration in increments no longer than
// statusInterval, reporting the remaining seconds before each increment.
func (c *Client) sleepReporting(ctx context.Context, d time.Duration, status StatusReporter, format string) error {
	for d > 0 {
		step := d
		if step > statusInterval {
			step = statusInterval
		}
		status.Status(fmt.Sprintf(format, int(d/time.Second)))
		if err := c.sleep(ctx, step); err != nil {
			return err
		}
		d -= step
	}
	return nil
}
