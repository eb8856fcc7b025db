// Package instrument wraps a Locker with wait and hold monitoring.
// Warnings go through the structured logger; the wrapped locker's
// semantics are unchanged.
package instrument

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/cocoonstack/withlock/lock"
)

// DefaultWarnAfter is the wait/hold threshold used when none is given.
const DefaultWarnAfter = time.Second

var (
	_ lock.TryLocker = (*Locker)(nil)
	_ lock.Poisoner  = (*Locker)(nil)
)

// Locker wraps another Locker and warns when acquisition waits or hold
// times exceed the threshold. TryLock and poisoning delegate to the
// wrapped locker when it supports them; a wrapped locker without
// Poisoner never reports poisoning, exactly as if it were unwrapped.
type Locker struct {
	inner     lock.Locker
	name      string
	warnAfter time.Duration

	acquiredAt atomic.Int64 // unix nanos, 0 while unheld
}

// New wraps inner. name labels log lines; warnAfter <= 0 uses
// DefaultWarnAfter.
func New(inner lock.Locker, name string, warnAfter time.Duration) *Locker {
	if warnAfter <= 0 {
		warnAfter = DefaultWarnAfter
	}
	return &Locker{inner: inner, name: name, warnAfter: warnAfter}
}

// Lock acquires the wrapped lock, warning when the wait exceeded the
// threshold.
func (l *Locker) Lock(ctx context.Context) error {
	start := time.Now()
	if err := l.inner.Lock(ctx); err != nil {
		return err
	}
	if wait := time.Since(start); wait > l.warnAfter {
		log.WithFunc("instrument.Lock").Warnf(ctx, "lock %q: waited %s to acquire", l.name, wait)
	}
	l.acquiredAt.Store(time.Now().UnixNano())
	return nil
}

// TryLock delegates to the wrapped locker; a locker without TryLock
// reports not acquired.
func (l *Locker) TryLock(ctx context.Context) (bool, error) {
	tl, ok := l.inner.(lock.TryLocker)
	if !ok {
		return false, nil
	}
	acquired, err := tl.TryLock(ctx)
	if acquired {
		l.acquiredAt.Store(time.Now().UnixNano())
	}
	return acquired, err
}

// Unlock releases the wrapped lock, warning when it was held longer than
// the threshold.
func (l *Locker) Unlock(ctx context.Context) error {
	if at := l.acquiredAt.Swap(0); at != 0 {
		if held := time.Since(time.Unix(0, at)); held > l.warnAfter {
			log.WithFunc("instrument.Unlock").Warnf(ctx, "lock %q: held for %s", l.name, held)
		}
	}
	return l.inner.Unlock(ctx)
}

// Poison delegates to the wrapped locker when it supports poisoning.
func (l *Locker) Poison() {
	if p, ok := l.inner.(lock.Poisoner); ok {
		p.Poison()
	}
}

// Poisoned reports the wrapped locker's poison state.
func (l *Locker) Poisoned() bool {
	p, ok := l.inner.(lock.Poisoner)
	return ok && p.Poisoned()
}

// ClearPoison delegates to the wrapped locker when it supports poisoning.
func (l *Locker) ClearPoison() {
	if p, ok := l.inner.(lock.Poisoner); ok {
		p.ClearPoison()
	}
}
