// Package kafka streams security events to a Kafka topic for SIEM
// consumers.
package kafka

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "ingestgate/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Sink struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

// Dial connects to brokers and makes sure topic exists.
func Dial(ctx context.Context, brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.ZstdCompression(), kgo.NoCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := EnsureTopic(ctx, kadm.NewClient(client), topic, 3, 1); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// EnsureTopic creates topic if it does not already exist.
func EnsureTopic(ctx context.Context, admin *kadm.Client, topic string, partitions int32, replicas int16) error {
	resp, err := admin.CreateTopics(ctx, partitions, replicas, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Write produces one record per event and waits for every ack. Records are
// keyed by partner when known, else by client IP, so one subject's events
// stay ordered within a partition.
func (s *Sink) Write(ctx context.Context, events []audit.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e.Record())
		if err != nil {
			return fmt.Errorf("encode security event: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: s.topic,
			Key:   []byte(partitionKey(e)),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "kind", Value: []byte(e.Kind)},
				{Key: "severity", Value: []byte(e.Severity)},
			},
			Timestamp: e.Timestamp,
		})
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce security events: %w", err)
	}
	return nil
}

func partitionKey(e audit.SecurityEvent) string {
	if e.PartnerID != "" {
		return e.PartnerID
	}
	return e.IP
}

// Decode parses a record value written by Write.
func Decode(value []byte) (audit.SecurityEvent, error) {
	var r audit.Record
	if err := json.Unmarshal(value, &r); err != nil {
		return audit.SecurityEvent{}, fmt.Errorf("decode security event: %w", err)
	}
	return r.Event(), nil
}
