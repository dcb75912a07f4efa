package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned by Latest.Do when a newer call for the same key
// arrived before this one finished. Its result must be discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

type latestCall struct {
	gen    uint64
	cancel context.CancelFunc
}

// Latest runs at most one live call per key. Each Do cancels the call it
// replaces, so only the most recent request's result is ever committed.
type Latest struct {
	mu    sync.Mutex
	seq   uint64
	calls map[string]latestCall
}

func NewLatest() *Latest {
	return &Latest{calls: map[string]latestCall{}}
}

// Do waits delay, then runs fn. A newer Do on key during the wait or while
// fn runs cancels fn's context and makes this call return ErrSuperseded.
func (l *Latest) Do(ctx context.Context, key string, delay time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if prev, ok := l.calls[key]; ok {
		prev.cancel()
	}
	l.seq++
	gen := l.seq
	l.calls[key] = latestCall{gen: gen, cancel: cancel}
	l.mu.Unlock()
	defer l.release(key, gen)

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			if !l.current(key, gen) {
				return ErrSuperseded
			}
			return ctx.Err()
		}
	}

	err := fn(ctx)
	if !l.current(key, gen) {
		return ErrSuperseded
	}
	return err
}

func (l *Latest) current(key string, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.calls[key]
	return ok && c.gen == gen
}

func (l *Latest) release(key string, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.calls[key]; ok && c.gen == gen {
		delete(l.calls, key)
	}
}
