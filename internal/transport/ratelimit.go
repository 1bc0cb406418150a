package transport

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket that paces outbound REST calls so the client
// stays under the platform's global request ceiling.
type RateLimiter struct {
	tokens     int
	capacity   int
	refillRate time.Duration
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter allows perSecond requests sustained, with a burst of the
// same size.
func NewRateLimiter(perSecond int) *RateLimiter {
	if perSecond < 1 {
		perSecond = 1
	}
	return &RateLimiter{
		tokens:     perSecond,
		capacity:   perSecond,
		refillRate: time.Second / time.Duration(perSecond),
		lastRefill: time.Now(),
	}
}

func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	refilled := int(elapsed / rl.refillRate)
	if refilled > 0 {
		rl.tokens += refilled
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(refilled) * rl.refillRate)
	}
}

// take consumes a token if one is available, otherwise reports how long
// until the next one.
func (rl *RateLimiter) take() (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refill()
	if rl.tokens > 0 {
		rl.tokens--
		return true, 0
	}
	return false, rl.refillRate - time.Since(rl.lastRefill)
}

// Wait blocks until a token is available or the context is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		ok, wait := rl.take()
		if ok {
			return nil
		}
		if wait < time.Millisecond {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
