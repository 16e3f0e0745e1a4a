package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/your-org/azuratime/internal/config"
)

const (
	cooldownKeyPrefix  = "azuratime:cooldown:"
	lastSyncAttemptKey = "azuratime:sync:last_attempt"
)

// RedisStore is the durable key-value side of the cooldown gate and the
// sync throttle. Implements checkin.CooldownStore and sync.ThrottleStore.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// LastCheckIn returns the persisted last-accepted time for an identity.
func (s *RedisStore) LastCheckIn(ctx context.Context, studentID string) (int64, bool, error) {
	v, err := s.client.Get(ctx, cooldownKeyPrefix+studentID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cooldown %s: %w", studentID, err)
	}
	millis, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cooldown %s: %w", studentID, err)
	}
	return millis, true, nil
}

// SetLastCheckIn stores the last-accepted time. Kept without expiry, like
// the preference store it replaces; the gate does all window math.
func (s *RedisStore) SetLastCheckIn(ctx context.Context, studentID string, millis int64) error {
	if err := s.client.Set(ctx, cooldownKeyPrefix+studentID, millis, 0).Err(); err != nil {
		return fmt.Errorf("set cooldown %s: %w", studentID, err)
	}
	return nil
}

// LastSyncAttempt returns the time of the last sync attempt, 0 when none.
func (s *RedisStore) LastSyncAttempt(ctx context.Context) (int64, error) {
	v, err := s.client.Get(ctx, lastSyncAttemptKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get last sync attempt: %w", err)
	}
	millis, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse last sync attempt: %w", err)
	}
	return millis, nil
}

func (s *RedisStore) SetLastSyncAttempt(ctx context.Context, millis int64) error {
	if err := s.client.Set(ctx, lastSyncAttemptKey, millis, 0).Err(); err != nil {
		return fmt.Errorf("set last sync attempt: %w", err)
	}
	return nil
}
