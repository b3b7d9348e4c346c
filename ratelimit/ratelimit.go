// Package ratelimit implements a fixed-window request counter keyed by client
// address, used to throttle login and registration attempts.
package ratelimit

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type window struct {
	start time.Time
	count int
}

// Limiter counts attempts per key within a fixed window. The key table is an
// LRU so a scan across many addresses cannot grow memory without bound;
// evicting an active window only ever forgets attempts, which errs on the
// permissive side.
type Limiter struct {
	mu      sync.Mutex
	windows *lru.Cache[string, *window]
	limit   int
	period  time.Duration
	now     func() time.Time
}

// New returns a limiter allowing limit attempts per period for each key.
func New(limit int, period time.Duration) *Limiter {
	windows, err := lru.New[string, *window](4096)
	if err != nil {
		panic("ratelimit: " + err.Error())
	}
	return &Limiter{
		windows: windows,
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the
// limit. Attempts above the limit still count toward the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows.Get(key)
	if !ok || now.Sub(w.start) >= l.period {
		w = &window{start: now}
		l.windows.Add(key, w)
	}
	w.count++
	return w.count <= l.limit
}

// Remaining reports how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows.Get(key)
	if !ok || l.now().Sub(w.start) >= l.period {
		return l.limit
	}
	if w.count >= l.limit {
		return 0
	}
	return l.limit - w.count
}
