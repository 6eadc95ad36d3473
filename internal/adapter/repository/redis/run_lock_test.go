package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/invoiceagent/internal/domain"
)

// newTestRedisClient connects to a fresh miniredis. Retries are off so a
// stopped server fails fast.
func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})

	return client, mr
}

func TestRunLock_AcquireAndRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	lock := NewRunLock(client, zerolog.Nop())
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "run:/data/in", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if !mr.Exists(lock.prefix + "run:/data/in") {
		t.Fatalf("expected lock key to exist")
	}
	if ttl := mr.TTL(lock.prefix + "run:/data/in"); ttl != time.Minute {
		t.Fatalf("expected ttl of 1m, got %v", ttl)
	}

	release()
	release()

	if mr.Exists(lock.prefix + "run:/data/in") {
		t.Fatalf("expected lock key to be deleted")
	}
}

func TestRunLock_Contended(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	lock := NewRunLock(client, zerolog.Nop())
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "run:a", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if _, err := lock.Acquire(ctx, "run:a", time.Minute); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	if other, err := lock.Acquire(ctx, "run:b", time.Minute); err != nil {
		t.Fatalf("expected independent key to be free, got %v", err)
	} else {
		other()
	}

	release()

	again, err := lock.Acquire(ctx, "run:a", time.Minute)
	if err != nil {
		t.Fatalf("expected lock to be free after release, got %v", err)
	}
	again()
}

func TestRunLock_ReleaseKeepsForeignToken(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	lock := NewRunLock(client, zerolog.Nop())
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "run:a", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// Lock expires and is taken by another process.
	mr.FastForward(2 * time.Second)
	if err := mr.Set(lock.prefix+"run:a", "someone-else"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	release()

	val, err := mr.Get(lock.prefix + "run:a")
	if err != nil || val != "someone-else" {
		t.Fatalf("expected foreign lock to survive, got val=%s err=%v", val, err)
	}
}

func TestRunLock_RedisDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	lock := NewRunLock(client, zerolog.Nop())
	_, err := lock.Acquire(context.Background(), "run:a", time.Minute)
	if err == nil || errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
