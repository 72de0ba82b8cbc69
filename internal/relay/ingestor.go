package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"

	"agora/internal/ledger"
	"agora/pkg/platform/sentinel"
)

var (
	recordsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_relay_ingested_total",
		Help: "Foreign records accepted into the local ledger.",
	})
	recordsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_relay_duplicates_total",
		Help: "Envelopes skipped because the record was already stored.",
	})
	recordsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_relay_rejected_total",
		Help: "Envelopes dropped as malformed or unverifiable.",
	})
)

// Appender is the slice of the ledger store the ingestor writes through.
type Appender interface {
	Append(ctx context.Context, rec ledger.Record) error
}

// Ingestor replays gossip envelopes into the local store. Every envelope is
// verified (id recomputation plus signature check) before it is accepted,
// and the store's duplicate-id conflict makes replay idempotent, so
// at-least-once delivery is safe. A node's own records come back around the
// topic and settle as duplicates.
type Ingestor struct {
	store  Appender
	client *kgo.Client
	log    *slog.Logger
}

func NewIngestor(store Appender, client *kgo.Client, log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{store: store, client: client, log: log}
}

// Run polls the consumer group until the context is cancelled. Offsets are
// committed only after a batch settles cleanly; a store failure leaves the
// batch uncommitted so the broker redelivers it, and the duplicate skip
// absorbs the records that did land.
func (i *Ingestor) Run(ctx context.Context) error {
	for {
		fetches := i.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			i.log.ErrorContext(ctx, "relay fetch error",
				"topic", topic, "partition", partition, "error", err)
		})

		settled := true
		fetches.EachRecord(func(kr *kgo.Record) {
			if !i.ingest(ctx, kr) {
				settled = false
			}
		})
		if !settled {
			continue
		}
		if err := i.client.CommitUncommittedOffsets(ctx); err != nil {
			i.log.ErrorContext(ctx, "relay offset commit failed", "error", err)
		}
	}
}

// ingest reports whether the envelope is settled: accepted, duplicate, or
// terminally rejected. Only a store failure returns false.
func (i *Ingestor) ingest(ctx context.Context, kr *kgo.Record) bool {
	var rec ledger.Record
	if err := json.Unmarshal(kr.Value, &rec); err != nil {
		recordsRejected.Inc()
		i.log.WarnContext(ctx, "malformed relay envelope dropped",
			"topic", kr.Topic, "partition", kr.Partition, "offset", kr.Offset, "error", err)
		return true
	}
	if err := rec.Verify(); err != nil {
		recordsRejected.Inc()
		i.log.WarnContext(ctx, "unverifiable record rejected",
			"record", rec.ID, "author", rec.Author, "error", err)
		return true
	}
	err := i.store.Append(ctx, rec)
	switch {
	case err == nil:
		recordsIngested.Inc()
		return true
	case errors.Is(err, sentinel.ErrConflict):
		recordsDuplicate.Inc()
		return true
	default:
		i.log.ErrorContext(ctx, "foreign record append failed",
			"record", rec.ID, "error", err)
		return false
	}
}
