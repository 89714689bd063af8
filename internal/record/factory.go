package record

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Options holds the knobs for building a Sink by adapter name.
type Options struct {
	RedisMarkerTTL time.Duration
	RedisAddr      string
	KafkaTopic     string
	PostgresDB     *sql.DB
}

// BuildSink constructs a Sink from a string selector:
//   - ""/"none": NopSink (recording disabled, the default)
//   - "redis": idempotent Redis adapter; uses a real go-redis client if
//     RedisAddr is set, otherwise the dependency-free logging fallback
//   - "kafka": Kafka adapter using the logging producer (no broker client
//     wired); it publishes every entry and does not deduplicate by CommitID
//   - "postgres": requires a non-nil PostgresDB; returns an error rather
//     than silently using a nil *sql.DB
func BuildSink(adapter string, opts Options) (Sink, error) {
	switch adapter {
	case "", "none":
		return NopSink{}, nil
	case "redis":
		var client RedisEvaler
		if opts.RedisAddr != "" {
			client = NewGoRedisClient(opts.RedisAddr)
		} else {
			client = LoggingRedisClient{}
		}
		return NewRedisSink(client, opts.RedisMarkerTTL), nil
	case "kafka":
		topic := opts.KafkaTopic
		if topic == "" {
			topic = "tsengine-record"
		}
		return NewKafkaSink(LoggingKafkaProducer{}, topic), nil
	case "postgres":
		if opts.PostgresDB == nil {
			return nil, errors.New("record: postgres adapter requires a non-nil PostgresDB")
		}
		return NewPostgresSink(opts.PostgresDB), nil
	default:
		return nil, fmt.Errorf("record: unknown sink adapter %q", adapter)
	}
}
