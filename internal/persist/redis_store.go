package persist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/l1jgo/detsim/internal/config"
)

// RedisStore keeps each checkpoint as a binary value under
// <prefix>:<match>:<tick> and indexes ticks in the sorted set
// <prefix>:<match>:ticks.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &RedisStore{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL, log: log}, nil
}

// CheckpointKey is the key a checkpoint is stored under.
func CheckpointKey(prefix string, matchID uuid.UUID, tick uint64) string {
	return prefix + ":" + matchID.String() + ":" + strconv.FormatUint(tick, 10)
}

func ticksKey(prefix string, matchID uuid.UUID) string {
	return prefix + ":" + matchID.String() + ":ticks"
}

func (s *RedisStore) Save(ctx context.Context, c Checkpoint) error {
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	index := ticksKey(s.prefix, c.MatchID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, CheckpointKey(s.prefix, c.MatchID, c.Tick), data, s.ttl)
	pipe.ZAdd(ctx, index, redis.Z{Score: float64(c.Tick), Member: strconv.FormatUint(c.Tick, 10)})
	if s.ttl > 0 {
		pipe.Expire(ctx, index, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint tick %d: %w", c.Tick, err)
	}
	s.log.Debug("checkpoint saved",
		zap.String("match", c.MatchID.String()),
		zap.Uint64("tick", c.Tick))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, matchID uuid.UUID, tick uint64) (Checkpoint, error) {
	data, err := s.client.Get(ctx, CheckpointKey(s.prefix, matchID, tick)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Checkpoint{}, fmt.Errorf("match %s tick %d: %w", matchID, tick, ErrNotFound)
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint tick %d: %w", tick, err)
	}
	var c Checkpoint
	if err := c.UnmarshalBinary(data); err != nil {
		return Checkpoint{}, err
	}
	return c, nil
}

// Latest follows the tick index. An index entry whose value expired is
// reported as not found.
func (s *RedisStore) Latest(ctx context.Context, matchID uuid.UUID) (Checkpoint, error) {
	ticks, err := s.client.ZRevRange(ctx, ticksKey(s.prefix, matchID), 0, 0).Result()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read tick index: %w", err)
	}
	if len(ticks) == 0 {
		return Checkpoint{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	tick, err := strconv.ParseUint(ticks[0], 10, 64)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("parse tick index %q: %w", ticks[0], err)
	}
	return s.Load(ctx, matchID, tick)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
