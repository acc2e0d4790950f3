// Package services – per-special claim lock.
//
// Capacity decisions are check-then-act: read the active-claim count,
// decide, insert. Two concurrent claims on the same special must not
// both observe the same pre-claim count, so claim processing for a
// given special is serialized through a keyed lock with a bounded wait.
// Claims on different specials never contend with each other.
//
// The lock table mirrors the rate limiter's bucket map: entries are
// created on demand, reference-counted, and removed when the last
// waiter releases, so memory stays bounded by the number of specials
// under concurrent contention.
package services

import (
	"context"
	"sync"
	"time"
)

// lockSlot is one special's mutex plus its active reference count.
// The buffered channel of size one acts as the mutex: sending acquires,
// receiving releases.
type lockSlot struct {
	ch   chan struct{}
	refs int
}

// specialLocker hands out per-key exclusive locks with bounded waits.
// Safe for concurrent use.
type specialLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

func newSpecialLocker() *specialLocker {
	return &specialLocker{slots: make(map[string]*lockSlot)}
}

// acquire blocks until the lock for key is held, the wait elapses, or
// ctx is done. On success it returns a release function that must be
// called exactly once. On timeout or cancellation it returns the ctx
// error or context.DeadlineExceeded.
func (l *specialLocker) acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.unref(key, slot)
		}, nil
	case <-timer.C:
		l.unref(key, slot)
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		l.unref(key, slot)
		return nil, ctx.Err()
	}
}

func (l *specialLocker) unref(key string, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
