package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"

	"agora/internal/ledger"
)

var (
	recordsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_relay_published_total",
		Help: "Records published to the gossip topic.",
	})
	publishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_relay_publish_failures_total",
		Help: "Records that could not be published.",
	})
)

// Publisher drains the tee outbox onto the gossip topic. Run it from the
// composition root; it stops when the context does. A failed produce is
// logged and the record abandoned: it stays committed in the local ledger,
// peers just never hear about it.
type Publisher struct {
	client *kgo.Client
	topic  string
	inbox  <-chan ledger.Record
	log    *slog.Logger
}

func NewPublisher(client *kgo.Client, topic string, inbox <-chan ledger.Record, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{client: client, topic: topic, inbox: inbox, log: log}
}

// Run publishes queued records until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-p.inbox:
			p.publish(ctx, rec)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, rec ledger.Record) {
	value, err := json.Marshal(rec)
	if err != nil {
		publishFailures.Inc()
		p.log.ErrorContext(ctx, "record marshal failed, not published",
			"record", rec.ID, "error", err)
		return
	}
	// Keyed by record id. Records are content-addressed and ingestion is
	// order-independent, so partition placement does not matter.
	kr := &kgo.Record{Topic: p.topic, Key: []byte(rec.ID), Value: value}
	if err := p.client.ProduceSync(ctx, kr).FirstErr(); err != nil {
		publishFailures.Inc()
		p.log.ErrorContext(ctx, "record publish failed",
			"record", rec.ID, "error", err)
		return
	}
	recordsPublished.Inc()
}
