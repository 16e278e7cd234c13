// Package publisher drains the audit outbox into Kafka. The outbox table is
// the durability boundary; the stream is the distribution path for external
// audit consumers, so relay lag never blocks a purge.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "omnigest/pkg/platform/audit"
)

const (
	defaultBatchSize = 256
	defaultInterval  = time.Second
)

// Relay polls the outbox and publishes pending entries to one Kafka topic.
// Rows are marked published only after every record in the batch is acked,
// so a crash re-publishes rather than drops (consumers must tolerate
// duplicates, keyed by request_id).
type Relay struct {
	outbox   audit.Outbox
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	log      *slog.Logger
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string, outbox audit.Outbox, log *slog.Logger) (*Relay, error) {
	if log == nil {
		log = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create audit topic %q: %w", topic, resp.Err)
	}

	return &Relay{
		outbox:   outbox,
		client:   client,
		topic:    topic,
		interval: defaultInterval,
		batch:    defaultBatchSize,
		log:      log,
	}, nil
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				// Outbox rows stay pending; next tick retries.
				r.log.Warn("audit relay pass failed", "error", err)
			}
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) error {
	rows, err := r.outbox.Unpublished(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("fetch outbox: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.RequestID),
			Value: row.Payload,
		})
		ids = append(ids, row.RequestID)
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}
	if err := r.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}

	r.log.Debug("audit batch relayed", "count", len(ids), "topic", r.topic)
	return nil
}

// Close flushes and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}
