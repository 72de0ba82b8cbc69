package audit

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agora/pkg/requestcontext"
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "agora_audit_events_dropped_total",
	Help: "Audit events dropped because the inbox was full.",
})

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	ListByActor(ctx context.Context, actor string) ([]Event, error)
}

const defaultBuffer = 256

// Service accepts events from domain logic. Emit never blocks: events queue
// into a buffered inbox drained by a Worker, and overflow is dropped with a
// log line and a counter tick.
type Service struct {
	inbox chan Event
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBuffer sets the inbox capacity.
func WithBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.inbox = make(chan Event, n)
		}
	}
}

// NewService creates an audit emitter. Pair it with a Worker over the same
// Inbox.
func NewService(opts ...Option) *Service {
	s := &Service{
		inbox: make(chan Event, defaultBuffer),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Inbox exposes the event channel for the draining worker.
func (s *Service) Inbox() <-chan Event { return s.inbox }

// Emit queues an event. Category is derived from the action; timestamp,
// actor and request id are filled from the context when unset.
func (s *Service) Emit(ctx context.Context, event Event) {
	event.Category = event.Action.Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx).UTC()
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Agent(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case s.inbox <- event:
	default:
		droppedEvents.Inc()
		s.log.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action, "entity", event.Entity)
	}
}
