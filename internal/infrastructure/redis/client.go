package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout = 2 * time.Second
	// A run lock that cannot be taken promptly should fail the run, not
	// stall the dashboard behind retries.
	maxRetries = 1
)

// NewClient creates a new Redis client for the run lock.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := clientOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// clientOptions parses redisURL. A dial_timeout given in the URL wins over
// the default.
func clientOptions(redisURL string) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	opts.MaxRetries = maxRetries

	return opts, nil
}
