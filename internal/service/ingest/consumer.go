package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/metrics"
	"github.com/maritimalarm/maritime-alarm/internal/version"
)

// maxLineSize bounds a single stream message.
const maxLineSize = 1 << 20

var (
	// ErrStreamStatus is returned when the provider refuses the stream.
	ErrStreamStatus = errors.New("unexpected stream status")
	// errStreamEnded is returned when the provider closes the stream.
	errStreamEnded = errors.New("stream ended")
)

// Publisher receives the vessels kept by the filter.
type Publisher interface {
	Publish(ctx context.Context, report vessel.Report) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, report vessel.Report) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, report vessel.Report) error {
	return f(ctx, report)
}

// ConsumerOptions configures a Consumer.
type ConsumerOptions struct {
	// Client sends authenticated requests.
	Client *http.Client
	// StreamURL is the streaming endpoint.
	StreamURL string
	// CountryCodes are sent to the provider to narrow the stream.
	CountryCodes []string
	// Filter selects the published vessels.
	Filter *Filter
	// Publisher stores the kept vessels.
	Publisher Publisher
	// ReconnectInterval is the pause before a broken stream is reopened.
	ReconnectInterval time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Consumer reads the AIS stream.
type Consumer struct {
	opts  ConsumerOptions
	known map[int64]*vessel.Report
}

type streamRequest struct {
	CountryCodes []string `json:"countryCodes"`
	ModelType    string   `json:"modelType"`
	Downsample   bool     `json:"downsample"`
}

// NewConsumer returns a consumer. The stream is opened by Consume.
func NewConsumer(opts ConsumerOptions) *Consumer {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	if opts.Filter == nil {
		opts.Filter = NewFilter(nil, opts.CountryCodes)
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Consumer{
		opts:  opts,
		known: make(map[int64]*vessel.Report),
	}
}

// Consume reads the stream until ctx is canceled, reopening it after failures.
func (c *Consumer) Consume(ctx context.Context) error {
	for {
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}

		logger.WarnKV(ctx, "AIS stream interrupted", "error", err, "retry_in", c.opts.ReconnectInterval)
		metrics.IngestReconnects.Inc()

		timer := time.NewTimer(c.opts.ReconnectInterval)

		select {
		case <-ctx.Done():
			timer.Stop()

			return nil
		case <-timer.C:
		}
	}
}

// stream opens the stream once and handles lines until it breaks.
func (c *Consumer) stream(ctx context.Context) error {
	body, err := json.Marshal(streamRequest{
		CountryCodes: c.opts.CountryCodes,
		ModelType:    "Full",
		Downsample:   false,
	})
	if err != nil {
		return fmt.Errorf("encode stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.StreamURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxLineSize))

		return fmt.Errorf("%w: %s", ErrStreamStatus, resp.Status)
	}

	logger.Info(ctx, "AIS stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		c.handle(ctx, line)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	return errStreamEnded
}

// handle decodes one message and publishes the vessel when it passes the filter.
func (c *Consumer) handle(ctx context.Context, line []byte) {
	var msg message
	if err := json.Unmarshal(line, &msg); err != nil || msg.MMSI <= 0 {
		metrics.IngestMessages.WithLabelValues(metrics.ResultInvalid).Inc()
		logger.DebugKV(ctx, "Skipping undecodable AIS message", "error", err, "line", string(line))

		return
	}

	if !c.opts.Filter.Keep(msg.MMSI, msg.CountryCode) {
		metrics.IngestMessages.WithLabelValues(metrics.ResultFiltered).Inc()

		return
	}

	report, ok := c.known[msg.MMSI]
	if !ok {
		report = new(vessel.Report)
		c.known[msg.MMSI] = report
	}

	msg.merge(report, c.opts.Clock())

	if err := c.opts.Publisher.Publish(ctx, *report); err != nil {
		result := metrics.ResultFailure
		if errors.Is(err, vessel.ErrInvalidReport) {
			result = metrics.ResultInvalid
		}

		metrics.IngestMessages.WithLabelValues(result).Inc()
		logger.WarnKV(ctx, "Failed to publish vessel", "mmsi", msg.MMSI, "error", err)

		return
	}

	metrics.IngestMessages.WithLabelValues(metrics.ResultKept).Inc()
	logger.DebugKV(ctx, "Vessel published", "mmsi", msg.MMSI, "name", report.DisplayName())
}
