// Package worker drains the click queue into the durable event store.
//
// Workers retry transient append failures with capped exponential
// backoff. The in-memory counters stay authoritative for reads while
// the durable sink is unavailable, so a retrying worker never blocks
// click ingestion.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pawlik/clickarena/internal/domain/model"
	"github.com/pawlik/clickarena/pkg/logger"
	"github.com/pawlik/clickarena/pkg/metrics"
)

// Default retry policy.
const (
	defaultRetryMax     = 5
	defaultBackoffMin   = 50 * time.Millisecond
	defaultBackoffMax   = 2 * time.Second
	workerStopTimeout   = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Appender is the durable sink workers write to.
type Appender interface {
	AppendClick(ctx context.Context, e model.ClickEvent) error
}

// Queue is how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.ClickEvent
}

// FlushWorker persists click events from the queue.
type FlushWorker struct {
	queue    Queue
	appender Appender
	name     string

	retryMax   int
	backoffMin time.Duration
	backoffMax time.Duration

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// signalStop closes the shutdown channel exactly once.
func (w *FlushWorker) signalStop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Option applies a configuration option to the FlushWorker.
type Option func(*FlushWorker)

// WithName sets the worker name for logging.
func WithName(name string) Option {
	return func(w *FlushWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithRetryPolicy sets the retry count and backoff bounds.
func WithRetryPolicy(retryMax int, backoffMin, backoffMax time.Duration) Option {
	return func(w *FlushWorker) {
		if retryMax > 0 {
			w.retryMax = retryMax
		}
		if backoffMin > 0 && backoffMax >= backoffMin {
			w.backoffMin = backoffMin
			w.backoffMax = backoffMax
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *FlushWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewFlushWorker creates a worker draining queue into appender.
func NewFlushWorker(queue Queue, appender Appender, opts ...Option) *FlushWorker {
	w := &FlushWorker{
		queue:      queue,
		appender:   appender,
		name:       "flush",
		retryMax:   defaultRetryMax,
		backoffMin: defaultBackoffMin,
		backoffMax: defaultBackoffMax,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("flush-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes events until ctx is canceled or the queue closes.
func (w *FlushWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.persist(ctx, event)
		}
	}
}

// persist appends one event, retrying transient failures.
func (w *FlushWorker) persist(ctx context.Context, event model.ClickEvent) {
	start := time.Now()
	backoff := w.backoffMin

	for attempt := 0; ; attempt++ {
		err := w.appender.AppendClick(ctx, event)
		if err == nil {
			metrics.RecordFlushAppend()
			metrics.RecordFlushLatency(float64(time.Since(start).Milliseconds()))
			return
		}

		if attempt >= w.retryMax {
			// Counters still hold the click; the next refresh from the
			// store overlay keeps it visible despite the lost record.
			metrics.RecordFlushDropped()
			w.logger.Error(ctx, "dropping click event after retries",
				logger.String("eventID", event.EventID),
				logger.Int("attempts", attempt+1),
				logger.Error(err),
			)
			return
		}

		metrics.RecordFlushRetry()
		w.logger.Warn(ctx, "durable append failed; backing off",
			logger.String("eventID", event.EventID),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.backoffMax {
			backoff = w.backoffMax
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight event.
func (w *FlushWorker) Shutdown(ctx context.Context) error {
	w.signalStop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages a set of flush workers.
type Pool struct {
	workers []*FlushWorker
	logger  logger.Logger
}

// NewPool creates workerCount flush workers over the same queue.
func NewPool(workerCount int, queue Queue, appender Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*FlushWorker, workerCount),
		logger:  logger.Get().Named("flush-pool"),
	}
	for i := 0; i < workerCount; i++ {
		named := append([]Option{WithName("flush-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewFlushWorker(queue, appender, named...)
	}
	metrics.UpdateFlushWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits briefly for each.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.signalStop()
	}
	deadline := time.After(poolShutdownTimeout)
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-deadline:
			p.logger.Warn(context.Background(), "flush worker stop timed out",
				logger.String("worker", w.name))
			return
		case <-time.After(workerStopTimeout):
			p.logger.Warn(context.Background(), "flush worker slow to stop",
				logger.String("worker", w.name))
		}
	}
	metrics.UpdateFlushWorkerCount(0)
}
