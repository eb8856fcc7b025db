// Package lock defines the mutual-exclusion capability the rest of the
// module builds on, and a scoped executor that binds the lifetime of held
// exclusive access to a single callback invocation.
package lock

import (
	"context"
	"errors"
)

// ErrPoisoned reports that a previous holder failed while holding the
// lock, so the protected state may be inconsistent. It is the only
// recoverable failure in this module: detect it with errors.Is and call
// Poisoner.ClearPoison to opt back into using the state.
var ErrPoisoned = errors.New("lock poisoned: previous holder failed while holding the lock")

// Locker provides mutual exclusion with context support.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// TryLocker is implemented by lockers that support non-blocking acquisition.
type TryLocker interface {
	Locker
	TryLock(ctx context.Context) (bool, error)
}

// Poisoner is implemented by lockers that track holder failure.
// A locker without Poisoner never reports poisoning.
type Poisoner interface {
	Poison()
	Poisoned() bool
	ClearPoison()
}

// WithLock acquires the lock, calls fn exactly once, and releases the
// lock on every exit path. If fn panics, the locker is poisoned (when it
// implements Poisoner) before the lock is released and the panic resumes.
// If a previous holder poisoned the locker, fn does not run and
// ErrPoisoned is returned.
func WithLock(ctx context.Context, l Locker, fn func() error) error {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	p, _ := l.(Poisoner)
	if p != nil && p.Poisoned() {
		_ = l.Unlock(ctx)
		return ErrPoisoned
	}
	completed := false
	defer func() {
		if !completed && p != nil {
			p.Poison()
		}
		l.Unlock(ctx) //nolint:errcheck
	}()
	err := fn()
	completed = true
	return err
}
