// Package redis builds the go-redis connection backing the purge
// registry's cross-restart subject markers.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"omnigest/internal/platform/config"
)

// Client is the configured connection handed to the redis-backed purge
// registry and the readiness check.
type Client struct {
	*redis.Client
}

// New dials redis from configuration. A nil client with a nil error means
// no URL was set; the purge registry then runs on its in-memory
// implementation and purge absorption does not survive restarts.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health pings the server so readiness can be reported without touching
// any purge marker.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
