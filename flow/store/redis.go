package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis implementation of Store[S].
//
// Designed for:
//   - Low-latency persistence shared across workers
//   - Workflows whose history may expire (optional TTL)
//
// Keys:
//
//	<prefix>:run:<runID>:step:<n>   step record JSON
//	<prefix>:run:<runID>:latest     latest step record JSON
//	<prefix>:ckpt:<runID>:<name>    checkpoint JSON
//	<prefix>:runs                   set of run IDs
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type Redis[S any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix string
	ttl    time.Duration
}

// WithTTL sets the expiration for step and checkpoint keys.
// Zero (the default) means no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix. The default is "gaiaflow".
func WithPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		c.prefix = prefix
	}
}

// NewRedis creates a Redis-backed store connected to the given address.
//
// Example:
//
//	st := store.NewRedis[MyState]("localhost:6379", "", 0,
//	    store.WithPrefix("myapp"),
//	    store.WithTTL(24*time.Hour),
//	)
//	defer st.Close()
func NewRedis[S any](addr, password string, db int, opts ...RedisOption) *Redis[S] {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient[S](client, opts...)
}

// NewRedisFromClient creates a Redis-backed store from an existing client.
// Useful for sharing a client or injecting a test server.
func NewRedisFromClient[S any](client *redis.Client, opts ...RedisOption) *Redis[S] {
	cfg := redisConfig{
		prefix: "gaiaflow",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Redis[S]{
		client: client,
		prefix: cfg.prefix,
		ttl:    cfg.ttl,
	}
}

func (r *Redis[S]) stepKey(runID string, step int) string {
	return fmt.Sprintf("%s:run:%s:step:%d", r.prefix, runID, step)
}

func (r *Redis[S]) latestKey(runID string) string {
	return fmt.Sprintf("%s:run:%s:latest", r.prefix, runID)
}

func (r *Redis[S]) checkpointKey(runID, name string) string {
	return fmt.Sprintf("%s:ckpt:%s:%s", r.prefix, runID, name)
}

func (r *Redis[S]) runsKey() string {
	return r.prefix + ":runs"
}

// SaveStep persists a step record and updates the run's latest pointer.
func (r *Redis[S]) SaveStep(ctx context.Context, rec StepRecord[S]) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal step record: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.stepKey(rec.RunID, rec.Step), data, r.ttl)
	pipe.Set(ctx, r.latestKey(rec.RunID), data, r.ttl)
	pipe.SAdd(ctx, r.runsKey(), rec.RunID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save step to redis: %w", err)
	}
	return nil
}

// LatestStep retrieves the most recent step record for a run.
// Returns ErrNotFound when the run has no steps (or they expired).
func (r *Redis[S]) LatestStep(ctx context.Context, runID string) (StepRecord[S], error) {
	var zero StepRecord[S]

	val, err := r.client.Get(ctx, r.latestKey(runID)).Result()
	if err != nil {
		if err == redis.Nil {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("failed to get latest step from redis: %w", err)
	}

	var rec StepRecord[S]
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return zero, fmt.Errorf("failed to unmarshal step record: %w", err)
	}
	return rec, nil
}

// SaveCheckpoint persists a named snapshot, overwriting any checkpoint with
// the same (RunID, Name).
func (r *Redis[S]) SaveCheckpoint(ctx context.Context, cp Checkpoint[S]) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := r.client.Set(ctx, r.checkpointKey(cp.RunID, cp.Name), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// LoadCheckpoint retrieves a checkpoint by run and name.
// Returns ErrNotFound when it does not exist (or expired).
func (r *Redis[S]) LoadCheckpoint(ctx context.Context, runID, name string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	val, err := r.client.Get(ctx, r.checkpointKey(runID, name)).Result()
	if err != nil {
		if err == redis.Nil {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("failed to get checkpoint from redis: %w", err)
	}

	var cp Checkpoint[S]
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return zero, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// ListRuns returns the IDs of all runs that have saved at least one step,
// sorted. Run IDs stay listed even after their step keys expire; a listed
// run whose records expired reports ErrNotFound on LatestStep.
func (r *Redis[S]) ListRuns(ctx context.Context) ([]string, error) {
	runs, err := r.client.SMembers(ctx, r.runsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs from redis: %w", err)
	}
	sort.Strings(runs)
	return runs, nil
}

// Close closes the underlying Redis client.
func (r *Redis[S]) Close() error {
	return r.client.Close()
}

// Ping verifies the Redis connection is alive.
func (r *Redis[S]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
