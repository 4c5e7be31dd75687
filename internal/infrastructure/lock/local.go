// Package lock provides the per-worker leases that keep evolution cadences
// from touching the same worker at once.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/google/uuid"
)

type lease struct {
	token   string
	expires time.Time
}

// LocalLocker holds leases in process memory. It only excludes callers that
// share the same instance.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{leases: make(map[string]lease), now: time.Now}
}

var _ ports.Locker = (*LocalLocker)(nil)

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, held := l.leases[key]; held && now.Before(cur.expires) {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.leases[key] = lease{token: token, expires: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// An expired lease may have been taken over; only drop our own.
		if cur, ok := l.leases[key]; ok && cur.token == token {
			delete(l.leases, key)
		}
	}, true, nil
}
