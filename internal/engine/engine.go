package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/evaluator"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/metrics"
	"github.com/maritimalarm/maritime-alarm/internal/tracker"
)

const (
	// DefaultQueueSize is the number of fired alarms waiting for delivery.
	DefaultQueueSize = 256
	// DefaultDeliveryTimeout bounds one hand-off to one sink.
	DefaultDeliveryTimeout = 5 * time.Second
)

var (
	errNoSource    = errors.New("engine needs a snapshot source")
	errNoEvaluator = errors.New("engine needs an evaluator")
	// ErrAlreadyStarted is returned by Start on a running engine.
	ErrAlreadyStarted = errors.New("engine already started")
)

// Options configures an Engine.
type Options struct {
	// Source is polled every PollInterval.
	Source Source
	// Evaluator applies the rules.
	Evaluator *evaluator.Evaluator
	// Targets receive every fired alarm, in order.
	Targets []Target
	// PollInterval is the period between snapshot fetches.
	PollInterval time.Duration
	// SweepInterval is the period between inactivity sweeps.
	SweepInterval time.Duration
	// FetchTimeout bounds one snapshot fetch.
	FetchTimeout time.Duration
	// DeliveryTimeout bounds one delivery to one target.
	DeliveryTimeout time.Duration
	// QueueSize bounds the alarms waiting for delivery.
	QueueSize int
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Engine schedules polls and sweeps and delivers fired alarms.
type Engine struct {
	opts    Options
	state   *tracker.State
	queue   chan alarm.Alarm
	tracked atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type fetchResult struct {
	reports []vessel.Report
	err     error
}

// New validates the options and returns an idle engine.
func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errNoSource
	}

	if opts.Evaluator == nil {
		return nil, errNoEvaluator
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}

	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}

	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = opts.PollInterval
	}

	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Engine{
		opts:  opts,
		state: tracker.NewState(),
		queue: make(chan alarm.Alarm, opts.QueueSize),
	}, nil
}

// Serve runs the engine until ctx is canceled. The first poll happens
// immediately. Pending alarms are delivered before Serve returns.
func (e *Engine) Serve(ctx context.Context) error {
	ctx = logger.WithName(ctx, "engine")

	var wg sync.WaitGroup

	stop := make(chan struct{})
	results := make(chan fetchResult, 1)

	wg.Add(1)

	go func() {
		defer wg.Done()

		e.dispatch(ctx, stop)
	}()

	pollTicker := time.NewTicker(e.opts.PollInterval)
	defer pollTicker.Stop()

	sweepTicker := time.NewTicker(e.opts.SweepInterval)
	defer sweepTicker.Stop()

	logger.InfoKV(ctx, "Alarm engine started",
		"poll_interval", e.opts.PollInterval, "sweep_interval", e.opts.SweepInterval)

	e.fetch(ctx, &wg, results)
	inFlight := true

	for {
		select {
		case <-ctx.Done():
			close(stop)
			wg.Wait()
			logger.Info(ctx, "Alarm engine stopped")

			return nil
		case <-pollTicker.C:
			if inFlight {
				metrics.SnapshotPolls.WithLabelValues(metrics.ResultSkipped).Inc()
				logger.Warn(ctx, "Previous snapshot fetch still running, skipping poll")

				continue
			}

			e.fetch(ctx, &wg, results)
			inFlight = true
		case result := <-results:
			inFlight = false

			if result.err != nil {
				logger.WarnKV(ctx, "Snapshot fetch failed, cycle skipped", "error", result.err)

				continue
			}

			e.ProcessSnapshot(ctx, result.reports)
		case <-sweepTicker.C:
			e.Sweep(ctx)
		}
	}
}

// String names the engine in supervisor logs.
func (e *Engine) String() string {
	return "alarm-engine"
}

// Start runs Serve in the background.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	e.cancel = cancel
	e.done = done

	go func() {
		defer close(done)

		_ = e.Serve(ctx)
	}()

	return nil
}

// Stop cancels a started engine and waits for it to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Tracked returns the number of vessels in the engine state.
func (e *Engine) Tracked() int {
	return int(e.tracked.Load())
}

// ProcessSnapshot evaluates one poll and queues the fired alarms.
// It must only be called from the goroutine owning the engine state: the
// Serve loop, or a test driving an engine that is not running.
func (e *Engine) ProcessSnapshot(ctx context.Context, reports []vessel.Report) []alarm.Alarm {
	fired := e.opts.Evaluator.Observe(ctx, e.state, reports, e.opts.Clock())

	e.tracked.Store(int64(e.state.Len()))
	metrics.TrackedVessels.Set(float64(e.state.Len()))

	e.enqueue(ctx, fired)

	return fired
}

// Sweep runs the inactivity rule over every tracked vessel and queues the
// fired alarms. The ownership rule of ProcessSnapshot applies.
func (e *Engine) Sweep(ctx context.Context) []alarm.Alarm {
	fired := e.opts.Evaluator.Sweep(ctx, e.state, e.opts.Clock())

	e.enqueue(ctx, fired)

	return fired
}

// fetch polls the source in its own goroutine.
func (e *Engine) fetch(ctx context.Context, wg *sync.WaitGroup, results chan<- fetchResult) {
	wg.Add(1)

	go func() {
		defer wg.Done()

		fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
		defer cancel()

		started := time.Now()
		reports, err := e.opts.Source.Snapshot(fetchCtx)
		metrics.RecordPoll(time.Since(started), err)

		// results has room for the single in-flight fetch.
		results <- fetchResult{reports: reports, err: err}
	}()
}

func (e *Engine) enqueue(ctx context.Context, fired []alarm.Alarm) {
	for _, a := range fired {
		metrics.AlarmsFired.WithLabelValues(string(a.Reason)).Inc()
		logger.InfoKV(ctx, "Alarm fired", "mmsi", a.MMSI, "name", a.Name, "reason", a.Reason)

		select {
		case e.queue <- a:
		default:
			metrics.AlarmDeliveries.WithLabelValues("queue", metrics.ResultDropped).Inc()
			logger.ErrorKV(ctx, "Alarm queue full, dropping alarm", "mmsi", a.MMSI, "reason", a.Reason)
		}
	}
}

// dispatch delivers queued alarms until stop is closed, then drains the queue.
func (e *Engine) dispatch(ctx context.Context, stop <-chan struct{}) {
	// Deliveries outlive the engine context so the final drain can complete.
	deliverCtx := context.WithoutCancel(ctx)

	for {
		select {
		case a := <-e.queue:
			e.deliver(deliverCtx, a)
		case <-stop:
			for {
				select {
				case a := <-e.queue:
					e.deliver(deliverCtx, a)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) deliver(ctx context.Context, fired alarm.Alarm) {
	for _, target := range e.opts.Targets {
		deliverCtx, cancel := context.WithTimeout(ctx, e.opts.DeliveryTimeout)
		err := target.Sink.Deliver(deliverCtx, fired)
		cancel()

		metrics.RecordDelivery(target.Name, err)

		if err != nil {
			// No retry: the alarm is lost for this target.
			logger.ErrorKV(ctx, "Alarm delivery failed",
				"target", target.Name, "mmsi", fired.MMSI, "reason", fired.Reason, "error", err)
		}
	}
}
