// Package lock provides keyed locks that serialize billing work per period
// and per customer, in-process or across instances through Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meterbill/backend/internal/domain/shared"
)

// ErrLockTimeout is returned when a lock could not be acquired within the wait budget
var ErrLockTimeout = shared.NewDomainError("CONCURRENT_MODIFICATION", "Timed out waiting for a concurrent operation on the same resource")

type keyLock struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits for the key.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

// NewMemoryLocker creates an in-process locker. wait bounds how long Lock
// blocks; zero means until the context is done.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*keyLock),
		wait:  wait,
	}
}

// Lock blocks until key is held. The returned unlock func is idempotent.
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	waitCtx, cancel := withWait(ctx, l.wait)
	defer cancel()

	select {
	case kl.sem <- struct{}{}:
	case <-waitCtx.Done():
		l.release(key, kl)
		return nil, waitError(ctx, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			l.release(key, kl)
		})
	}, nil
}

func (l *MemoryLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently held or awaited
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// waitError distinguishes the caller giving up from the wait budget running out
func waitError(parent context.Context, key string) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return fmt.Errorf("lock %s: %w", key, ErrLockTimeout)
}

// IsTimeout reports whether err came from an exhausted wait budget
func IsTimeout(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
