// Package messaging publishes JSON events over redis pub/sub.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Publisher publishes a message to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisClient is a redis backed publisher.
type RedisClient interface {
	Publisher
	Close() error
}

type redisClient struct {
	client *redis.Client
}

// NewRedisClient connects to redis and verifies the connection with PING.
func NewRedisClient(addr, password string, db int) (RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisClientFromConn(client), nil
}

// NewRedisClientFromConn wraps an existing go-redis client.
func NewRedisClientFromConn(client *redis.Client) RedisClient {
	return &redisClient{client: client}
}

func (r *redisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

// NopPublisher discards every message.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
