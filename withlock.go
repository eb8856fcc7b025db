// Package withlock binds exclusive access to a value to the scope of a
// single callback invocation. A Locked[T] owns its value behind a
// mutual-exclusion primitive; the value is reachable only inside
// With/Do/WithPair callbacks, so held access can never outlive the
// callback that requested it and the lock is released on every exit
// path, including panic.
package withlock

import (
	"context"

	"github.com/google/uuid"

	"github.com/cocoonstack/withlock/lock"
	"github.com/cocoonstack/withlock/lock/mutex"
)

// Locked owns one value of type T behind a mutual-exclusion primitive.
// Any number of goroutines may share a *Locked; all access to the value
// goes through With, Do or WithPair and serializes in the order the
// underlying primitive grants the lock.
type Locked[T any] struct {
	id     uuid.UUID
	locker lock.Locker
	value  T
}

// New wraps value for exclusive access behind a fresh in-process mutex.
func New[T any](value T) *Locked[T] {
	return NewWithLocker(value, mutex.New())
}

// NewWithLocker wraps value behind a preconstructed locker, e.g. a
// flock.Lock shared with other processes. The locker must not be used to
// guard anything else.
func NewWithLocker[T any](value T, locker lock.Locker) *Locked[T] {
	return &Locked[T]{id: uuid.New(), locker: locker, value: value}
}

// ID returns the stable identity assigned at construction. WithPair uses
// its byte order to pick a consistent acquisition order across two
// instances.
func (l *Locked[T]) ID() uuid.UUID {
	return l.id
}

// Locker returns the underlying mutual-exclusion primitive.
func (l *Locked[T]) Locker() lock.Locker {
	return l.locker
}

// With acquires exclusive access, calls fn exactly once with the
// protected value, and releases before returning, even if fn panics.
// Returns lock.ErrPoisoned without running fn when a previous holder
// failed while holding the lock; a panic inside fn poisons the lock
// before it is released and the panic resumes.
//
// The pointer passed to fn must not be retained past fn's return.
func (l *Locked[T]) With(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, l.locker, func() error {
		return fn(&l.value)
	})
}

// UnsafeDeref returns the protected value without acquiring the lock.
// Only safe while the caller exclusively owns l and no other goroutine
// can reach it; in every other situation use With.
func (l *Locked[T]) UnsafeDeref() *T {
	return &l.value
}

// Do runs fn with exclusive access and returns its result once the lock
// is released. Go methods cannot introduce type parameters, so the
// result-carrying form is a function.
func Do[T, U any](ctx context.Context, l *Locked[T], fn func(*T) (U, error)) (U, error) {
	var result U
	err := l.With(ctx, func(v *T) error {
		var err error
		result, err = fn(v)
		return err
	})
	return result, err
}
