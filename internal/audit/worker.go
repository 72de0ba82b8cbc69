package audit

import (
	"context"
	"log/slog"
)

// Worker drains the service inbox into a store. Run it from the composition
// root; it stops when the context does.
type Worker struct {
	store Store
	inbox <-chan Event
	log   *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, log: log}
}

// Run persists events until the context is cancelled. A failed append is
// logged and the event abandoned: a dead worker would silently fill the
// inbox and turn every later Emit into a drop, which is strictly worse.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.log.ErrorContext(ctx, "audit append failed, event lost",
					"action", event.Action, "category", event.Category, "error", err)
			}
		}
	}
}
