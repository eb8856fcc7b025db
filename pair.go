package withlock

import (
	"bytes"
	"context"
)

// WithPair acquires a and b and calls fn with both protected values held.
//
// When a and b are the same instance the lock is acquired once and fn
// receives the same pointer twice; acquiring twice would deadlock on a
// non-reentrant primitive. Distinct instances are acquired in the byte
// order of their IDs — stable and independent of argument order — so two
// concurrent calls with reversed arguments cannot each hold one lock
// while waiting for the other.
func WithPair[T any](ctx context.Context, a, b *Locked[T], fn func(av, bv *T) error) error {
	if a == b {
		return a.With(ctx, func(v *T) error {
			return fn(v, v)
		})
	}
	first, second := a, b
	if bytes.Compare(b.id[:], a.id[:]) < 0 {
		first, second = b, a
	}
	return first.With(ctx, func(*T) error {
		return second.With(ctx, func(*T) error {
			return fn(&a.value, &b.value)
		})
	})
}
