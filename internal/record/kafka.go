package record

import (
	"context"
	"fmt"
)

// KafkaProducer abstracts the minimal surface this package needs to publish
// a snapshot record.
type KafkaProducer interface {
	Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// LoggingKafkaProducer logs every produced message instead of talking to a
// broker. No Kafka client library is available to wire in, so this
// dependency-free adapter stands in for a real one.
type LoggingKafkaProducer struct{}

func (LoggingKafkaProducer) Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if headers == nil {
		headers = map[string]string{}
	}
	fmt.Printf("[record-kafka] TOPIC=%s KEY=%s VALUE=%s HEADERS=%v\n", topic, string(key), truncate(string(value), 256), headers)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// KafkaSink publishes one message per entry, keyed by FQPath, to topic.
type KafkaSink struct {
	producer KafkaProducer
	topic    string
}

// NewKafkaSink builds a KafkaSink publishing to topic via producer.
func NewKafkaSink(producer KafkaProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (k *KafkaSink) CommitBatch(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		headers := map[string]string{
			"commit_id":   e.CommitID,
			"engine_time": fmt.Sprintf("%d", e.At),
		}
		if err := k.producer.Produce(ctx, k.topic, []byte(e.FQPath), e.Encoded, headers); err != nil {
			return fmt.Errorf("record kafka: fq_path=%s commit=%s: %w", e.FQPath, e.CommitID, err)
		}
	}
	return nil
}
