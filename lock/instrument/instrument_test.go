//go:build !deadlock

package instrument

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cocoonstack/withlock/lock"
	"github.com/cocoonstack/withlock/lock/mutex"
)

func TestPassThrough(t *testing.T) {
	l := New(mutex.New(), "test", 0)
	ctx := context.Background()
	if err := l.Lock(ctx); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := l.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestWarnPaths(t *testing.T) {
	// A tiny threshold forces both the wait and hold warnings; the test
	// only asserts that the locker still behaves correctly around them.
	l := New(mutex.New(), "slow", time.Nanosecond)
	ctx := context.Background()

	if err := l.Lock(ctx); err != nil {
		t.Fatalf("lock: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := l.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestTryLockDelegation(t *testing.T) {
	l := New(mutex.New(), "test", 0)
	ctx := context.Background()

	ok, err := l.TryLock(ctx)
	if err != nil || !ok {
		t.Fatalf("expected TryLock to acquire, got ok=%v err=%v", ok, err)
	}
	ok, err = l.TryLock(ctx)
	if err != nil {
		t.Fatalf("trylock: %v", err)
	}
	if ok {
		t.Error("expected TryLock to fail while held")
	}
	if err := l.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

// bareLocker implements only Locker.
type bareLocker struct{ held bool }

func (b *bareLocker) Lock(_ context.Context) error { b.held = true; return nil }

func (b *bareLocker) Unlock(_ context.Context) error { b.held = false; return nil }

func TestBareLocker_NoTryLockNoPoison(t *testing.T) {
	l := New(&bareLocker{}, "bare", 0)
	ctx := context.Background()

	ok, err := l.TryLock(ctx)
	if err != nil {
		t.Fatalf("trylock: %v", err)
	}
	if ok {
		t.Error("expected TryLock to report not acquired for a bare locker")
	}

	l.Poison()
	if l.Poisoned() {
		t.Error("a bare locker must never report poisoning")
	}
}

func TestPoisonDelegation(t *testing.T) {
	m := mutex.New()
	l := New(m, "test", 0)

	l.Poison()
	if !m.Poisoned() {
		t.Fatal("expected poison to reach the wrapped locker")
	}
	if !l.Poisoned() {
		t.Fatal("expected wrapper to report wrapped poison state")
	}

	err := lock.WithLock(context.Background(), l, func() error { return nil })
	if !errors.Is(err, lock.ErrPoisoned) {
		t.Fatalf("expected ErrPoisoned through the wrapper, got %v", err)
	}

	l.ClearPoison()
	if m.Poisoned() {
		t.Fatal("expected ClearPoison to reach the wrapped locker")
	}
}
