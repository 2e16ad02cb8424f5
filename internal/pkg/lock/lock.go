// Package lock serializes read-modify-write sequences on a single user's
// records, such as wallet updates outside of game sessions.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// entry is a user's mutex plus the number of goroutines holding or waiting on it.
type entry struct {
	mu   sync.Mutex
	refs int
}

// UserLock is a set of per-user mutexes. Entries are dropped once nobody
// holds or waits on them, so the set stays proportional to active users.
type UserLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewUserLock creates an empty UserLock.
func NewUserLock() *UserLock {
	return &UserLock{entries: make(map[int64]*entry)}
}

func (l *UserLock) acquire(userID int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[userID]
	if !ok {
		e = &entry{}
		l.entries[userID] = e
	}
	e.refs++
	return e
}

func (l *UserLock) release(userID int64, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, userID)
	}
}

// Lock blocks until the user's mutex is held.
func (l *UserLock) Lock(userID int64) {
	l.acquire(userID).mu.Lock()
}

// Unlock releases the user's mutex. Unlocking a user that is not locked is a no-op.
func (l *UserLock) Unlock(userID int64) {
	l.mu.Lock()
	e, ok := l.entries[userID]
	l.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Unlock()
	l.release(userID, e)
}

// TryLock acquires the user's mutex without blocking.
func (l *UserLock) TryLock(userID int64) bool {
	e := l.acquire(userID)
	if e.mu.TryLock() {
		return true
	}
	l.release(userID, e)
	return false
}

// LockContext waits for the user's mutex until ctx is done.
func (l *UserLock) LockContext(ctx context.Context, userID int64) error {
	e := l.acquire(userID)
	if e.mu.TryLock() {
		return nil
	}

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-acquired
			e.mu.Unlock()
			l.release(userID, e)
		}()
		return fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}
}

// WithLock runs fn while holding the user's mutex.
func (l *UserLock) WithLock(userID int64, fn func() error) error {
	l.Lock(userID)
	defer l.Unlock(userID)
	return fn()
}

// WithLockContext runs fn while holding the user's mutex, giving up when ctx
// is done before the mutex is acquired.
func (l *UserLock) WithLockContext(ctx context.Context, userID int64, fn func() error) error {
	if err := l.LockContext(ctx, userID); err != nil {
		return err
	}
	defer l.Unlock(userID)
	return fn()
}

// Len returns the number of users currently locked or waited on.
func (l *UserLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
