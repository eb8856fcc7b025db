// Package cell provides a mutex-backed value container. Every observable
// state transition of a Cell happens atomically under the cell's own
// lock, and the two classic swap hazards are designed out: swapping a
// cell with itself is a no-op, and two-cell swaps acquire in a stable
// identity order so reversed concurrent swaps cannot deadlock.
package cell

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cocoonstack/withlock"
	"github.com/cocoonstack/withlock/lock"
)

// Cell owns one value of type T. Copies of the contained value are made
// by Go assignment, so for reference types (maps, slices, pointers) the
// copy shares the referenced data.
type Cell[T any] struct {
	lk       *withlock.Locked[T]
	consumed atomic.Bool
}

// New creates a cell holding value behind a fresh in-process mutex.
func New[T any](value T) *Cell[T] {
	return &Cell[T]{lk: withlock.New(value)}
}

// NewWithLocker creates a cell guarded by a preconstructed locker.
func NewWithLocker[T any](value T, locker lock.Locker) *Cell[T] {
	return &Cell[T]{lk: withlock.NewWithLocker(value, locker)}
}

// ID returns the cell's stable identity.
func (c *Cell[T]) ID() uuid.UUID {
	return c.lk.ID()
}

func (c *Cell[T]) check() {
	if c.consumed.Load() {
		panic("cell: use after IntoInner")
	}
}

// Get returns a copy of the current value.
func (c *Cell[T]) Get(ctx context.Context) (T, error) {
	c.check()
	return withlock.Do(ctx, c.lk, func(v *T) (T, error) {
		return *v, nil
	})
}

// Set unconditionally overwrites the contained value.
func (c *Cell[T]) Set(ctx context.Context, value T) error {
	c.check()
	return c.lk.With(ctx, func(v *T) error {
		*v = value
		return nil
	})
}

// Replace substitutes value for the current contents and returns the
// prior contents, in one acquisition. A get-then-set pair would lose
// updates interleaved between the two locks.
func (c *Cell[T]) Replace(ctx context.Context, value T) (T, error) {
	c.check()
	return withlock.Do(ctx, c.lk, func(v *T) (T, error) {
		prev := *v
		*v = value
		return prev, nil
	})
}

// Swap exchanges the contents of c and other while both locks are held.
// Swapping a cell with itself is a no-op and acquires nothing.
func (c *Cell[T]) Swap(ctx context.Context, other *Cell[T]) error {
	c.check()
	other.check()
	if c == other || c.lk == other.lk {
		return nil
	}
	return withlock.WithPair(ctx, c.lk, other.lk, func(cv, ov *T) error {
		*cv, *ov = *ov, *cv
		return nil
	})
}

// Take replaces the contents with the zero value of T and returns the
// prior contents.
func (c *Cell[T]) Take(ctx context.Context) (T, error) {
	var zero T
	return c.Replace(ctx, zero)
}

// UnsafeRef returns the contained value without acquiring the lock.
// Only safe while the caller exclusively owns the cell and no other
// goroutine can reach it; in every other situation use the locked
// operations.
func (c *Cell[T]) UnsafeRef() *T {
	c.check()
	return c.lk.UnsafeDeref()
}

// IntoInner consumes the cell and returns the final value with no
// synchronization overhead. When the lock was poisoned, the value is
// still returned, alongside lock.ErrPoisoned, so the caller decides
// whether to recover it. Any use of the cell after IntoInner panics.
func (c *Cell[T]) IntoInner() (T, error) {
	if !c.consumed.CompareAndSwap(false, true) {
		panic("cell: use after IntoInner")
	}
	v := *c.lk.UnsafeDeref()
	if p, ok := c.lk.Locker().(lock.Poisoner); ok && p.Poisoned() {
		return v, lock.ErrPoisoned
	}
	return v, nil
}
