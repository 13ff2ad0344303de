// Package ratelimit implements in-memory fixed-window admission control.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Limiter admits at most limit requests per key in each fixed window
type Limiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates limiter and starts janitor evicting stale windows. Call Stop to release it.
func New(limit int, period time.Duration) *Limiter {
	l := newLimiter(limit, period, time.Now)
	go l.janitor()
	return l
}

func newLimiter(limit int, period time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		limit:   limit,
		period:  period,
		now:     now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Allow counts request of key and reports whether it is admitted, and
// when current window resets
func (l *Limiter) Allow(key string) (bool, time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.period)) {
		w = &window{start: now}
		l.windows[key] = w
	}

	reset := w.start.Add(l.period)
	if w.count >= l.limit {
		return false, reset
	}
	w.count++

	return true, reset
}

// Stop stops janitor
func (l *Limiter) Stop() {
	l.once.Do(func() {
		close(l.stop)
	})
	<-l.done
}

func (l *Limiter) janitor() {
	defer close(l.done)

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

func (l *Limiter) evict() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.period)) {
			delete(l.windows, key)
		}
	}
}
