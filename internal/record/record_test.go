package record

import (
	"context"
	"testing"
	"time"
)

func TestLoggingRedisClientEval(t *testing.T) {
	lr := LoggingRedisClient{}
	out, err := lr.Eval(context.Background(), "return 1", []string{"k"}, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(int64) != 1 {
		t.Fatalf("unexpected eval result: %v", out)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lr.Eval(ctx, "", nil); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}

func TestGoRedisClientNew(t *testing.T) {
	g := NewGoRedisClient("127.0.0.1:0")
	if g == nil {
		t.Fatalf("expected non-nil GoRedisClient")
	}
}

func TestRedisSinkCommitBatchRequiresCommitID(t *testing.T) {
	sink := NewRedisSink(LoggingRedisClient{}, time.Hour)
	err := sink.CommitBatch(context.Background(), []Entry{{FQPath: "a.b", At: 1}})
	if err == nil {
		t.Fatalf("expected error for missing CommitID")
	}
}

func TestRedisSinkCommitBatchSucceeds(t *testing.T) {
	sink := NewRedisSink(LoggingRedisClient{}, time.Hour)
	err := sink.CommitBatch(context.Background(), []Entry{
		{FQPath: "a.b", At: 1, Encoded: []byte("42"), CommitID: "c1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoggingKafkaProducerProduce(t *testing.T) {
	kp := LoggingKafkaProducer{}
	if err := kp.Produce(context.Background(), "topic", []byte("k"), []byte("v"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	<-ctx.Done()
	cancel()
	if err := kp.Produce(ctx, "topic", nil, nil, nil); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("unexpected short truncate: %q", got)
	}
	if got := truncate("abcdefghijklmnopqrstuvwxyz", 5); got != "abcde..." {
		t.Fatalf("unexpected long truncate: %q", got)
	}
}

func TestKafkaSinkCommitBatch(t *testing.T) {
	sink := NewKafkaSink(LoggingKafkaProducer{}, "snapshots")
	err := sink.CommitBatch(context.Background(), []Entry{
		{FQPath: "a.b", At: 1, Encoded: []byte("42"), CommitID: "c1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTraitsInheritAndOverride(t *testing.T) {
	parent := NewTraits(nil, map[string]string{"recordable_id": "root", "env": "prod"})
	child := NewTraits(parent, map[string]string{"recordable_id": "child"})

	if child.RecordableID() != "child" {
		t.Fatalf("expected child to override recordable_id, got %q", child.RecordableID())
	}
	if v, ok := child.Get("env"); !ok || v != "prod" {
		t.Fatalf("expected child to inherit env=prod, got %q ok=%v", v, ok)
	}
}

func TestBuildSinkSelectorsAndPostgresRequiresDB(t *testing.T) {
	if _, err := BuildSink("", Options{}); err != nil {
		t.Fatalf("default adapter should build a NopSink: %v", err)
	}
	if _, err := BuildSink("redis", Options{}); err != nil {
		t.Fatalf("redis adapter without an address should fall back to logging: %v", err)
	}
	if _, err := BuildSink("kafka", Options{}); err != nil {
		t.Fatalf("kafka adapter should build fine: %v", err)
	}
	if _, err := BuildSink("postgres", Options{}); err == nil {
		t.Fatalf("expected error for postgres adapter without a DB")
	}
	if _, err := BuildSink("bogus", Options{}); err == nil {
		t.Fatalf("expected error for unknown adapter")
	}
}
