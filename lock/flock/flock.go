package flock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/cocoonstack/withlock/lock"
)

const retryDelay = 100 * time.Millisecond

// poisonSuffix names the sidecar marker file recording holder failure.
// flock(2) itself drops the lock when a holder dies, so the marker is
// the only way other processes learn that the protected state may be
// inconsistent.
const poisonSuffix = ".poisoned"

// compile-time interface checks.
var (
	_ lock.TryLocker = (*Lock)(nil)
	_ lock.Poisoner  = (*Lock)(nil)
)

// Lock provides cross-process mutual exclusion using flock(2) via gofrs/flock.
// Lock files are long-lived and never deleted after use.
type Lock struct {
	fl *flock.Flock
}

// New creates a new Lock for the given path.
func New(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// Lock acquires an exclusive flock. Blocks until the lock is available
// or the context is cancelled.
func (l *Lock) Lock(ctx context.Context) error {
	locked, err := l.fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("acquire flock %s: %w", l.fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire flock %s: context done", l.fl.Path())
	}
	return nil
}

// TryLock attempts to acquire the flock without blocking.
func (l *Lock) TryLock(_ context.Context) (bool, error) {
	locked, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("try flock %s: %w", l.fl.Path(), err)
	}
	return locked, nil
}

// Unlock releases the flock.
func (l *Lock) Unlock(_ context.Context) error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release flock %s: %w", l.fl.Path(), err)
	}
	return nil
}

// Poison writes the marker file recording that a holder failed while
// holding the lock. Marker write failures are ignored: poisoning is
// advisory and must not mask the original failure.
func (l *Lock) Poison() {
	_ = os.WriteFile(l.markerPath(), nil, 0o644)
}

// Poisoned reports whether the marker file exists.
func (l *Lock) Poisoned() bool {
	_, err := os.Stat(l.markerPath())
	return err == nil
}

// ClearPoison removes the marker file.
func (l *Lock) ClearPoison() {
	_ = os.Remove(l.markerPath())
}

func (l *Lock) markerPath() string {
	return l.fl.Path() + poisonSuffix
}
