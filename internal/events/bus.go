// Package events is the in-process publish/subscribe layer between the write
// path and local projections (cache invalidation, UI refresh hooks).
//
// Delivery is synchronous and in registration order, so a subscriber sees
// every event exactly once and in the order the publisher committed them.
// Subscriber failures are isolated: an error or panic in one handler is
// logged and counted, and the remaining handlers still run.
package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"agora/internal/events/metrics"
	"agora/internal/ledger"
	"agora/pkg/domain"
)

// Type is the kind of mutation an event announces.
type Type string

const (
	TypeCreated Type = "created"
	TypeUpdated Type = "updated"
	TypeDeleted Type = "deleted"
)

// Event describes one committed mutation of a marketplace entity.
type Event struct {
	Type       Type
	Collection domain.Collection
	// Entity is the original record id, stable across the whole chain.
	Entity domain.RecordID
	// Record is the ledger record the mutation appended.
	Record ledger.Record
}

// Handler consumes events for one collection. A returned error is logged
// and isolated; it never aborts delivery to later subscribers.
type Handler func(ctx context.Context, ev Event) error

type subscription struct {
	id      uuid.UUID
	handler Handler
}

// Bus routes events to per-collection subscribers.
type Bus struct {
	log *slog.Logger
	m   *metrics.Metrics

	mu   sync.RWMutex
	subs map[domain.Collection][]subscription
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the bus logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

// WithMetrics attaches bus metrics. Nil is allowed.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) { b.m = m }
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		log:  slog.Default(),
		subs: make(map[domain.Collection][]subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for a collection's events and returns the
// matching unsubscribe. Unsubscribe is idempotent; dropping it leaks the
// handler for the life of the bus, so callers that come and go must call it.
func (b *Bus) Subscribe(c domain.Collection, h Handler) (unsubscribe func()) {
	sub := subscription{id: uuid.New(), handler: h}

	b.mu.Lock()
	b.subs[c] = append(b.subs[c], sub)
	b.mu.Unlock()

	return func() { b.remove(c, sub.id) }
}

func (b *Bus) remove(c domain.Collection, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Rebuild rather than splice: Publish may hold a snapshot of the old
	// slice, which must stay intact while its handlers run.
	old := b.subs[c]
	subs := make([]subscription, 0, len(old))
	for _, sub := range old {
		if sub.id != id {
			subs = append(subs, sub)
		}
	}
	b.subs[c] = subs
}

// Publish delivers the event to every current subscriber of its collection,
// synchronously and in registration order. Handlers registered during
// delivery see only later events.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs[ev.Collection])
	b.mu.RUnlock()

	b.m.IncrementPublished(ev.Collection.String(), string(ev.Type))
	for _, sub := range subs {
		b.deliver(ctx, sub, ev)
	}
}

// deliver runs one handler with failure isolation. The snapshot in Publish
// is taken without the lock held during handler execution, so a handler may
// subscribe or unsubscribe reentrantly without deadlocking.
func (b *Bus) deliver(ctx context.Context, sub subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.m.IncrementHandlerFailure(ev.Collection.String(), "panic")
			b.log.ErrorContext(ctx, "event handler panicked",
				"subscription_id", sub.id,
				"collection", ev.Collection,
				"event_type", ev.Type,
				"panic", r,
			)
		}
	}()

	if err := sub.handler(ctx, ev); err != nil {
		b.m.IncrementHandlerFailure(ev.Collection.String(), "error")
		b.log.WarnContext(ctx, "event handler failed",
			"subscription_id", sub.id,
			"collection", ev.Collection,
			"event_type", ev.Type,
			"error", err,
		)
	}
}
