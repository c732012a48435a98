// Package lock serializes work on a shared key, in process or across replicas.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when a lock could not be taken before the context expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive access to a key until release is called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
