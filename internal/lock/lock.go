// Package lock provides per-account mutual exclusion for the transfer engine.
//
// Lockers acquire a set of keys in ascending order, so two callers locking the same pair of
// accounts from opposite directions cannot wait on each other. Acquisition is bounded by a
// timeout and a failed acquisition releases every key already held.
package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrTimeout is returned when the keys could not all be acquired within the locker's timeout.
var ErrTimeout = errors.New("lock wait timed out")

// Release unlocks every key acquired by a Lock call. It is safe to call more than once.
type Release func()

type Locker interface {
	Lock(ctx context.Context, keys ...string) (Release, error)
}

// orderKeys sorts keys lexicographically and drops duplicates.
func orderKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}
