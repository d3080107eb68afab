package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "draw-guess:image:"

// Redis stores images as hashes with a TTL so that several server
// processes can serve the same drawings.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Put(ctx context.Context, roomID string, data []byte, contentType string) (string, error) {
	key := newKey(roomID, contentType)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKeyPrefix+key, "data", data, "type", contentType)
		if r.ttl > 0 {
			pipe.Expire(ctx, redisKeyPrefix+key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store image in redis: %w", err)
	}
	return PathPrefix + key, nil
}

func (r *Redis) Get(ctx context.Context, key string) (Object, error) {
	if !validKey(key) {
		return Object{}, ErrNotFound
	}
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return Object{}, fmt.Errorf("load image from redis: %w", err)
	}
	data, ok := fields["data"]
	if !ok {
		return Object{}, ErrNotFound
	}
	return Object{Data: []byte(data), ContentType: fields["type"]}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
