package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

// NewRedisClient connects and pings the configured Redis server
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisStatusStore caches the live session status in Redis
type RedisStatusStore struct {
	client redis.Cmdable
}

var _ repositories.StatusStore = (*RedisStatusStore)(nil)

func NewRedisStatusStore(client redis.Cmdable) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

func (s *RedisStatusStore) SetStatus(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return appErrors.ErrCacheFailed("set status", err)
	}
	return nil
}

func (s *RedisStatusStore) GetStatus(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, appErrors.ErrCacheFailed("get status", err)
	}
	return value, true, nil
}

func (s *RedisStatusStore) DeleteStatus(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return appErrors.ErrCacheFailed("delete status", err)
	}
	return nil
}

// RedisPublisher publishes recording events as JSON on a pub/sub channel
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
}

var _ repositories.EventPublisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event entities.RecordingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, string(payload)).Err(); err != nil {
		return appErrors.ErrCacheFailed("publish event", err)
	}
	return nil
}
