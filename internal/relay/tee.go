// Package relay bridges the local ledger to a shared broker so hosted
// deployments see each other's records without direct peer connections.
// The producing side tees committed appends onto a gossip topic; the
// consuming side verifies foreign envelopes and replays them into the local
// store. The relay never touches caches: remote records become visible as
// cached snapshots expire.
package relay

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agora/internal/ledger"
)

var outboxDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "agora_relay_outbox_dropped_total",
	Help: "Records dropped because the relay outbox was full.",
})

const defaultOutbox = 1024

// Tee decorates a ledger store so every committed append is also queued for
// publication. Queueing never blocks and never fails the append: the local
// ledger is the source of truth and the broker is best-effort gossip, so a
// full outbox drops the record from the queue, not from the ledger.
type Tee struct {
	ledger.Store
	outbox chan ledger.Record
	log    *slog.Logger
}

// NewTee wraps store with a publication queue of the given capacity. Pair it
// with a Publisher over the same Outbox.
func NewTee(store ledger.Store, buffer int, log *slog.Logger) *Tee {
	if buffer <= 0 {
		buffer = defaultOutbox
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tee{Store: store, outbox: make(chan ledger.Record, buffer), log: log}
}

// Append commits the record locally, then queues it for the publisher.
func (t *Tee) Append(ctx context.Context, rec ledger.Record) error {
	if err := t.Store.Append(ctx, rec); err != nil {
		return err
	}
	select {
	case t.outbox <- rec:
	default:
		outboxDropped.Inc()
		t.log.WarnContext(ctx, "relay outbox full, record not published",
			"record", rec.ID, "kind", rec.Kind)
	}
	return nil
}

// Outbox exposes the queue for the draining publisher.
func (t *Tee) Outbox() <-chan ledger.Record { return t.outbox }
