package commitlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/royalty/internal/clock"
)

type lease struct {
	token   string
	expires time.Time
}

// LocalLocker keeps leases in memory. It only protects a single process.
type LocalLocker struct {
	mu     sync.Mutex
	clock  clock.Clock
	leases map[string]lease
}

func NewLocalLocker(c clock.Clock) *LocalLocker {
	if c == nil {
		c = clock.NewSystemClock()
	}
	return &LocalLocker{clock: c, leases: make(map[string]lease)}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := checkArgs(key, ttl); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if held, ok := l.leases[key]; ok && now.Before(held.expires) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[key] = lease{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.leases[key]; ok && held.token == token {
		delete(l.leases, key)
	}
	return nil
}
