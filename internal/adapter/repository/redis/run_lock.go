package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/invoiceagent/internal/domain"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock implements usecase.RunLock using Redis, so that the dashboard and
// CLI on different hosts sharing a directory do not run concurrently.
type RunLock struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRunLock creates a new RunLock.
func NewRunLock(client *redis.Client, logger zerolog.Logger) *RunLock {
	return &RunLock{
		client: client,
		prefix: "invoiceagent:lock:",
		logger: logger,
	}
}

// Acquire takes the lock for key with SET NX. The returned release func is
// safe to call more than once.
func (l *RunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	fullKey := l.prefix + key
	token := ulid.Make().String()

	set, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !set {
		return nil, domain.ErrRunInProgress
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true

		// Release even if the run context was cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", fullKey).Msg("release run lock failed")
		}
	}, nil
}
