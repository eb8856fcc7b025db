//go:build deadlock

// Package mutex provides the in-process mutual-exclusion primitive used
// by default throughout the module. Build with -tags=deadlock to swap in
// a lock-order-checking variant for development.
package mutex

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/cocoonstack/withlock/lock"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = true

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

var (
	_ lock.Locker   = (*Mutex)(nil)
	_ lock.Poisoner = (*Mutex)(nil)
)

// Mutex is the detector-backed build of the in-process primitive.
// Acquisition cannot be interrupted by ctx in this build and TryLock is
// unavailable; the detector reports inconsistent lock ordering and long
// waits instead.
type Mutex struct {
	mu       deadlock.Mutex
	held     atomic.Bool
	poisoned atomic.Bool
}

// New creates an unlocked Mutex.
func New() *Mutex {
	return &Mutex{}
}

// Lock acquires the mutex. ctx is ignored in this build.
func (m *Mutex) Lock(_ context.Context) error {
	m.mu.Lock()
	m.held.Store(true)
	return nil
}

// Unlock releases the mutex. Unlocking a mutex that is not held is an error.
func (m *Mutex) Unlock(_ context.Context) error {
	if !m.held.CompareAndSwap(true, false) {
		return errors.New("unlock of unlocked mutex")
	}
	m.mu.Unlock()
	return nil
}

// Poison records that a holder failed while holding the mutex.
func (m *Mutex) Poison() { m.poisoned.Store(true) }

// Poisoned reports whether a previous holder failed while holding the mutex.
func (m *Mutex) Poisoned() bool { return m.poisoned.Load() }

// ClearPoison resets the poison flag, opting back into the protected state.
func (m *Mutex) ClearPoison() { m.poisoned.Store(false) }
