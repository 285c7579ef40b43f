package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pawlik/clickarena/internal/adapters/mq/queue"
	"github.com/pawlik/clickarena/internal/domain/model"
)

// flakyAppender fails the first failures attempts per event, then succeeds.
type flakyAppender struct {
	mu       sync.Mutex
	failures int
	attempts int
	appended []model.ClickEvent
}

func (a *flakyAppender) AppendClick(_ context.Context, e model.ClickEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts++
	if a.attempts <= a.failures {
		return errors.New("store unavailable")
	}
	a.appended = append(a.appended, e)
	return nil
}

func (a *flakyAppender) appendedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.appended)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWorkerPersistsEvent(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(8))
	defer q.Close()
	sink := &flakyAppender{}

	w := NewFlushWorker(q, sink, WithName("test"))
	go w.Run(ctx)
	defer func() { _ = w.Shutdown(ctx) }()

	q.Enqueue(ctx, model.ClickEvent{EventID: "e1", BattleID: "b1", ParticipantID: "p1", Delta: 1})

	waitFor(t, func() bool { return sink.appendedCount() == 1 })
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(8))
	defer q.Close()
	sink := &flakyAppender{failures: 2}

	w := NewFlushWorker(q, sink,
		WithRetryPolicy(5, time.Millisecond, 4*time.Millisecond))
	go w.Run(ctx)
	defer func() { _ = w.Shutdown(ctx) }()

	q.Enqueue(ctx, model.ClickEvent{EventID: "e1", BattleID: "b1", ParticipantID: "p1", Delta: 2})

	waitFor(t, func() bool { return sink.appendedCount() == 1 })
}

func TestWorkerDropsAfterRetryBudget(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(8))
	defer q.Close()
	// Fails forever for the first event, then recovers for the second.
	sink := &flakyAppender{failures: 3}

	w := NewFlushWorker(q, sink,
		WithRetryPolicy(2, time.Millisecond, 2*time.Millisecond))
	go w.Run(ctx)
	defer func() { _ = w.Shutdown(ctx) }()

	q.Enqueue(ctx, model.ClickEvent{EventID: "lost", BattleID: "b1", ParticipantID: "p1", Delta: 1})
	q.Enqueue(ctx, model.ClickEvent{EventID: "kept", BattleID: "b1", ParticipantID: "p1", Delta: 1})

	// Only the second event lands; the first exhausts its retries.
	waitFor(t, func() bool { return sink.appendedCount() == 1 })
	sink.mu.Lock()
	got := sink.appended[0].EventID
	sink.mu.Unlock()
	if got != "kept" {
		t.Errorf("expected the recovered event to persist, got %q", got)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue()
	defer q.Close()

	w := NewFlushWorker(q, &flakyAppender{})
	go w.Run(ctx)

	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestPoolStartStop(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(64))
	defer q.Close()
	sink := &flakyAppender{}

	p := NewPool(3, q, sink)
	p.Start(ctx)

	for i := 0; i < 10; i++ {
		q.Enqueue(ctx, model.ClickEvent{
			EventID: "e", BattleID: "b1", ParticipantID: "p1", Delta: 1,
		})
	}
	waitFor(t, func() bool { return sink.appendedCount() == 10 })

	p.Stop()
	p.Stop() // second stop is a no-op
}
