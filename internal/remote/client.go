package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/metrics"
	"github.com/maritimalarm/maritime-alarm/internal/version"
)

// Receive endpoint type tags.
const (
	TypeShips  = "ships"
	TypeAlarms = "alarms"
)

// maxResponseSize bounds the body read from a peer.
const maxResponseSize = 8 << 20

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Client calls a remote receive endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	name       string
}

// NewClient creates a client for the receive endpoint at endpoint.
// Name labels the breaker in logs and metrics.
func NewClient(name, endpoint string, timeout time.Duration) (*Client, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,                // One probe in half-open state
		Interval:    time.Minute,      // Reset counts after 1 minute in closed state
		Timeout:     30 * time.Second, // Wait before probing an open circuit
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WarnKV(context.Background(), "Circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		name:       name,
	}, nil
}

// Snapshot fetches the peer's ship mapping and returns it ordered by MMSI.
func (c *Client) Snapshot(ctx context.Context) ([]vessel.Report, error) {
	target, err := c.withType(TypeShips)
	if err != nil {
		return nil, err
	}

	body, err := c.execute(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}

	// An empty store is served as an empty body or a JSON array.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) {
		return []vessel.Report{}, nil
	}

	var mapping map[string]vessel.Report
	if err = json.Unmarshal(trimmed, &mapping); err != nil {
		return nil, fmt.Errorf("decode ships: %w", err)
	}

	reports := make([]vessel.Report, 0, len(mapping))
	for key, report := range mapping {
		if report.MMSI == 0 {
			mmsi, parseErr := strconv.ParseInt(key, 10, 64)
			if parseErr != nil {
				logger.WarnKV(ctx, "Skipping ship with non-numeric key", "source", c.name, "key", key)

				continue
			}

			report.MMSI = mmsi
		}

		if err = report.Validate(); err != nil {
			logger.WarnKV(ctx, "Skipping invalid ship report", "source", c.name, "key", key, "error", err)

			continue
		}

		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].MMSI < reports[j].MMSI })

	return reports, nil
}

// Deliver forwards a fired alarm to the peer.
func (c *Client) Deliver(ctx context.Context, fired alarm.Alarm) error {
	return c.post(ctx, TypeAlarms, fired)
}

// PostShip sends one report to the peer's snapshot store.
func (c *Client) PostShip(ctx context.Context, report vessel.Report) error {
	return c.post(ctx, TypeShips, report)
}

// Name returns the breaker name.
func (c *Client) Name() string {
	return c.name
}

func (c *Client) post(ctx context.Context, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}

	form := url.Values{
		"type":      {kind},
		"json_data": {string(data)},
	}

	_, err = c.execute(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded")

	return err
}

// execute performs one request through the breaker and returns the body.
func (c *Client) execute(ctx context.Context, method, target string, body io.Reader, contentType string) ([]byte, error) {
	result, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, target, body, contentType)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, metrics.ResultRejected).Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, metrics.ResultFailure).Inc()
		}

		return nil, fmt.Errorf("%s %s: %w", method, c.name, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, metrics.ResultSuccess).Inc()

	return result, nil
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return data, nil
}

func (c *Client) withType(kind string) (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	query := parsed.Query()
	query.Set("type", kind)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
