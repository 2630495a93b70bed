package service

import (
	"context"
	"time"

	"github.com/noah-isme/atc-endorsement-api/pkg/lease"
)

// TaskLease is a held task lock, released when the run completes.
type TaskLease interface {
	Release(ctx context.Context)
}

// TaskLocker hands out named task leases with strict skip-if-busy
// semantics: when the lease is held the run is skipped, never queued.
type TaskLocker interface {
	Acquire(ctx context.Context, task string, ttl time.Duration) (TaskLease, error)
}

// LeaseLocker adapts the redis-backed locker to TaskLocker.
type LeaseLocker struct {
	Locker *lease.Locker
}

// Acquire implements TaskLocker.
func (l LeaseLocker) Acquire(ctx context.Context, task string, ttl time.Duration) (TaskLease, error) {
	held, err := l.Locker.Acquire(ctx, task, ttl)
	if err != nil {
		return nil, err
	}
	return held, nil
}
