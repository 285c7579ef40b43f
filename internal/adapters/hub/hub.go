// Package hub fans battle state deltas out to live subscribers.
//
// Each subscriber owns a buffered channel; publishing never blocks on
// a slow consumer. A subscriber whose buffer stays full only loses
// deltas, never stalls the battle, and disconnected subscribers are
// pruned lazily on the next publish.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pawlik/clickarena/internal/domain/model"
	"github.com/pawlik/clickarena/pkg/metrics"
)

// defaultBufferSize is the per-subscriber delta buffer.
const defaultBufferSize = 64

// Subscriber is one registered viewer of a battle.
type Subscriber struct {
	id       string
	battleID string
	ch       chan model.Delta
	closed   atomic.Bool
	once     sync.Once
}

// ID returns the subscriber's handle id.
func (s *Subscriber) ID() string { return s.id }

// BattleID returns the battle this subscriber watches.
func (s *Subscriber) BattleID() string { return s.battleID }

// Deltas is the receive side of the subscription. The channel closes
// on Unsubscribe or hub shutdown.
func (s *Subscriber) Deltas() <-chan model.Delta { return s.ch }

func (s *Subscriber) close() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
	})
}

// Hub is the per-battle subscriber registry.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Subscriber]struct{}
	bufferSize int
	total      int
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber delta buffer size.
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		rooms:      make(map[string]map[*Subscriber]struct{}),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber for a battle.
func (h *Hub) Subscribe(battleID string) *Subscriber {
	sub := &Subscriber{
		id:       uuid.NewString(),
		battleID: battleID,
		ch:       make(chan model.Delta, h.bufferSize),
	}

	h.mu.Lock()
	room, ok := h.rooms[battleID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[battleID] = room
	}
	room[sub] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()

	metrics.UpdateSubscriberCount(total)
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
// Unsubscribing an unknown or already-removed subscriber is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	removed := false
	if room, ok := h.rooms[sub.battleID]; ok {
		if _, present := room[sub]; present {
			delete(room, sub)
			h.total--
			removed = true
		}
		if len(room) == 0 {
			delete(h.rooms, sub.battleID)
		}
	}
	total := h.total
	h.mu.Unlock()

	sub.close()
	if removed {
		metrics.UpdateSubscriberCount(total)
	}
}

// Publish delivers a delta to every subscriber of a battle. Delivery
// to one subscriber is isolated from the others: a full buffer drops
// the delta for that subscriber only, and closed subscribers are
// collected for pruning.
func (h *Hub) Publish(battleID string, delta model.Delta) {
	h.mu.RLock()
	room := h.rooms[battleID]
	var dead []*Subscriber
	for sub := range room {
		if sub.closed.Load() {
			dead = append(dead, sub)
			continue
		}
		select {
		case sub.ch <- delta:
			metrics.RecordBroadcastDelivery()
		default:
			metrics.RecordBroadcastDropped()
		}
	}
	h.mu.RUnlock()

	for _, sub := range dead {
		h.Unsubscribe(sub)
	}
}

// SubscriberCount reports the number of subscribers for one battle.
func (h *Hub) SubscriberCount(battleID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[battleID])
}

// TotalSubscribers reports the number of subscribers across battles.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Close unsubscribes everyone, closing all delta channels.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Subscriber
	for _, room := range h.rooms {
		for sub := range room {
			all = append(all, sub)
		}
	}
	h.rooms = make(map[string]map[*Subscriber]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
	metrics.UpdateSubscriberCount(0)
}
