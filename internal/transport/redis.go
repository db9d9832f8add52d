// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisTimeout = 500 * time.Millisecond

// RedisTransport publishes every frame as JSON on a Redis pub/sub channel.
type RedisTransport struct {
	rdb     *redis.Client
	channel string
}

// NewRedisTransport connects to addr and verifies the server answers before
// returning.
func NewRedisTransport(ctx context.Context, addr, channel string) (*RedisTransport, error) {
	if channel == "" {
		return nil, fmt.Errorf("redis transport: channel cannot be empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  redisTimeout,
		ReadTimeout:  redisTimeout,
		WriteTimeout: redisTimeout,
		MaxRetries:   1,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*redisTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	logger.Infof("Publishing frames to redis %s channel %q", addr, channel)
	return &RedisTransport{rdb: rdb, channel: channel}, nil
}

// Send publishes msg. The subscriber count Redis reports is ignored.
func (rt *RedisTransport) Send(msg *FrameMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis encode frame %d: %w", msg.Seq, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := rt.rdb.Publish(ctx, rt.channel, payload).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis publish frame %d: %w", msg.Seq, err)
	}
	return nil
}

func (rt *RedisTransport) Close() error {
	logger.Debugf("Closing redis transport")
	return rt.rdb.Close()
}

var _ Transport = (*RedisTransport)(nil)
