//go:build !deadlock

// Package mutex provides the in-process mutual-exclusion primitive used
// by default throughout the module. Build with -tags=deadlock to swap in
// a lock-order-checking variant for development.
package mutex

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cocoonstack/withlock/lock"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = false

var (
	_ lock.TryLocker = (*Mutex)(nil)
	_ lock.Poisoner  = (*Mutex)(nil)
)

// Mutex is an in-process mutual-exclusion primitive. Unlike sync.Mutex,
// a goroutine waiting in Lock gives up when its context is done, and the
// mutex carries a poison flag recording that a holder failed while
// holding it. The zero value is not usable; call New.
type Mutex struct {
	sem      chan struct{}
	poisoned atomic.Bool
}

// New creates an unlocked Mutex.
func New() *Mutex {
	return &Mutex{sem: make(chan struct{}, 1)}
}

// Lock acquires the mutex, blocking until it is available or ctx is
// done. Pass context.Background() for unbounded blocking.
func (m *Mutex) Lock(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	default:
	}
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire mutex: %w", ctx.Err())
	}
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock(_ context.Context) (bool, error) {
	select {
	case m.sem <- struct{}{}:
		return true, nil
	default:
		return false, nil
	}
}

// Unlock releases the mutex. Unlocking a mutex that is not held is an error.
func (m *Mutex) Unlock(_ context.Context) error {
	select {
	case <-m.sem:
		return nil
	default:
		return errors.New("unlock of unlocked mutex")
	}
}

// Poison records that a holder failed while holding the mutex.
func (m *Mutex) Poison() { m.poisoned.Store(true) }

// Poisoned reports whether a previous holder failed while holding the mutex.
func (m *Mutex) Poisoned() bool { return m.poisoned.Load() }

// ClearPoison resets the poison flag, opting back into the protected state.
func (m *Mutex) ClearPoison() { m.poisoned.Store(false) }
