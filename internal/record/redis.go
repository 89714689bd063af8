package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisEvaler abstracts the minimal surface this package needs from a Redis
// client.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// LoggingRedisClient is a dependency-free fallback that just logs every
// snapshot write, letting a caller select the Redis adapter without a real
// Redis instance available.
type LoggingRedisClient struct{}

func (LoggingRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	fmt.Printf("[record-redis] EVAL script(len=%d) KEYS=%v ARGS=%v\n", len(script), keys, args)
	return int64(1), nil
}

// GoRedisClient wraps github.com/redis/go-redis/v9 as a RedisEvaler.
type GoRedisClient struct{ c *redis.Client }

// NewGoRedisClient dials addr (e.g. "127.0.0.1:6379") lazily — go-redis
// connects on first use.
func NewGoRedisClient(addr string) *GoRedisClient {
	return &GoRedisClient{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.c.Eval(ctx, script, keys, args...).Result()
}

// snapshotLuaScript idempotently writes one FQPath's snapshot: it sets a
// commit marker (SETNX) and only writes the hash fields if the marker was
// newly set, so a retried entry with the same CommitID is a no-op.
const snapshotLuaScript = `
local snapshotKey = KEYS[1]
local markerKey = KEYS[2]
local engineTime = ARGV[1]
local encoded = ARGV[2]
local ttlSeconds = tonumber(ARGV[3])
local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  redis.call('HSET', snapshotKey, 'engine_time', engineTime, 'value', encoded)
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  return 1
else
  return 0
end
`

// SnapshotKey and MarkerKey are the key layout helpers, exported so callers
// can interoperate with the same keyspace directly (e.g. for inspection or
// manual cleanup).
func SnapshotKey(fqPath string) string { return fmt.Sprintf("tsrecord:%s", fqPath) }
func MarkerKey(fqPath, commitID string) string {
	return fmt.Sprintf("tsrecord-commit:%s:%s", fqPath, commitID)
}

// RedisSink snapshots entries into Redis hashes keyed by FQPath, guarded by
// a per-entry idempotency marker with a bounded TTL.
type RedisSink struct {
	client    RedisEvaler
	markerTTL time.Duration
}

// NewRedisSink builds a RedisSink. markerTTL defaults to 24h if non-positive,
// as a leak-protection default so a forgotten marker doesn't live forever.
func NewRedisSink(client RedisEvaler, markerTTL time.Duration) *RedisSink {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &RedisSink{client: client, markerTTL: markerTTL}
}

func (r *RedisSink) CommitBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.CommitID == "" {
			return errors.New("record: Entry.CommitID must be set")
		}
		keys := []string{SnapshotKey(e.FQPath), MarkerKey(e.FQPath, e.CommitID)}
		args := []interface{}{e.At, string(e.Encoded), int(r.markerTTL.Seconds())}
		if _, err := r.client.Eval(ctx, snapshotLuaScript, keys, args...); err != nil {
			return fmt.Errorf("record redis: fq_path=%s commit=%s: %w", e.FQPath, e.CommitID, err)
		}
	}
	return nil
}
