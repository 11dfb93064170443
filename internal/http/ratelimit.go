package http

import (
	"sync"
	"time"
)

const (
	// requestsPerWindow caps mutating requests per client within one window.
	requestsPerWindow = 60
	windowLength      = time.Minute

	sweepInterval = 5 * time.Minute
	visitorTTL    = 10 * time.Minute
)

// rateLimiter tracks mutating-request counts per client IP over a fixed
// window. Stale visitors are swept by a background goroutine until stop().
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	windowStart time.Time
	count       int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-visitorTTL)
	for ip, v := range rl.visitors {
		if v.windowStart.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
}

// allow reports whether the client may make another mutating request.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[clientIP]
	if !ok || now.Sub(v.windowStart) > windowLength {
		rl.visitors[clientIP] = &visitor{windowStart: now, count: 1}
		return true
	}

	v.count++
	return v.count <= requestsPerWindow
}
