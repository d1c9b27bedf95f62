package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type localEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker serializes access to keys within one process.
type LocalLocker struct {
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*localEntry
}

func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{
		timeout: timeout,
		entries: make(map[string]*localEntry),
	}
}

func (l *LocalLocker) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *LocalLocker) Lock(ctx context.Context, keys ...string) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ordered := orderKeys(keys)
	held := make([]*localEntry, 0, len(ordered))

	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			l.unref(ordered[i])
		}
	}

	for _, key := range ordered {
		if err := ctx.Err(); err != nil {
			releaseHeld()
			return nil, fmt.Errorf("%w: key %s: %v", ErrTimeout, key, err)
		}
		e := l.ref(key)
		select {
		case e.ch <- struct{}{}:
			held = append(held, e)
		case <-ctx.Done():
			l.unref(key)
			releaseHeld()
			return nil, fmt.Errorf("%w: key %s: %v", ErrTimeout, key, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}
