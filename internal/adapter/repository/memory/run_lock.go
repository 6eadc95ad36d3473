package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/invoiceagent/internal/domain"
)

// RunLock implements usecase.RunLock within a single process.
type RunLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewRunLock creates a new RunLock.
func NewRunLock() *RunLock {
	return &RunLock{
		held:  make(map[string]time.Time),
		clock: time.Now,
	}
}

// Acquire takes the lock for key. A held lock older than ttl is considered
// abandoned and taken over.
func (l *RunLock) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expires, ok := l.held[key]; ok && (ttl <= 0 || now.Before(expires)) {
		return nil, domain.ErrRunInProgress
	}

	expires := now.Add(ttl)
	l.held[key] = expires

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key].Equal(expires) {
				delete(l.held, key)
			}
		})
	}, nil
}
