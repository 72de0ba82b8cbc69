package relay

import (
	"context"
	"errors"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "agora/pkg/domain-errors"
)

// DefaultTopic is the shared gossip topic for ledger records.
const DefaultTopic = "agora.ledger.records"

// NewProducerClient connects a produce-only client to the broker.
func NewProducerClient(brokers []string) (*kgo.Client, error) {
	return kgo.NewClient(kgo.SeedBrokers(brokers...))
}

// NewConsumerClient connects a group consumer pinned to the gossip topic.
// Auto-commit is off: the ingestor commits explicitly after each settled
// batch. New groups start from the earliest offset so a fresh node replays
// the full shared history.
func NewConsumerClient(brokers []string, group, topic string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
}

// EnsureTopic creates the gossip topic if the broker does not have it yet.
// Call it once at startup before wiring the publisher and ingestor.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicas int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replicas, nil, topic)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "create relay topic")
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return dErrors.Wrapf(res.Err, dErrors.CodeUnavailable, "create relay topic %q", res.Topic)
		}
	}
	return nil
}
