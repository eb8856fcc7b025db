package flock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cocoonstack/withlock/lock"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "index.lock")
}

func TestLockUnlock(t *testing.T) {
	l := New(lockPath(t))
	ctx := context.Background()
	if err := l.Lock(ctx); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := l.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestTryLock_ContendedBySecondInstance(t *testing.T) {
	path := lockPath(t)
	ctx := context.Background()

	a := New(path)
	if err := a.Lock(ctx); err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer a.Unlock(ctx) //nolint:errcheck

	// A second Flock on the same path holds its own fd, so it contends
	// like another process would.
	b := New(path)
	ok, err := b.TryLock(ctx)
	if err != nil {
		t.Fatalf("trylock: %v", err)
	}
	if ok {
		t.Error("expected TryLock to fail while another instance holds the lock")
	}
}

func TestLock_ContextCanceledWhileWaiting(t *testing.T) {
	path := lockPath(t)
	ctx := context.Background()

	a := New(path)
	if err := a.Lock(ctx); err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer a.Unlock(ctx) //nolint:errcheck

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if err := New(path).Lock(waitCtx); err == nil {
		t.Fatal("expected error when context expires while waiting")
	}
}

func TestPoisonMarker_VisibleToSecondInstance(t *testing.T) {
	path := lockPath(t)

	a := New(path)
	a.Poison()

	b := New(path)
	if !b.Poisoned() {
		t.Fatal("expected second instance to observe the poison marker")
	}
	b.ClearPoison()
	if a.Poisoned() {
		t.Fatal("expected marker cleared for all instances")
	}
}

func TestWithLock_PanicLeavesMarker(t *testing.T) {
	path := lockPath(t)
	l := New(path)

	func() {
		defer func() { _ = recover() }()
		_ = lock.WithLock(context.Background(), l, func() error {
			panic("holder failed")
		})
	}()

	err := lock.WithLock(context.Background(), New(path), func() error { return nil })
	if !errors.Is(err, lock.ErrPoisoned) {
		t.Fatalf("expected ErrPoisoned from a fresh instance, got %v", err)
	}
}
