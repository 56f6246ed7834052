package signal

import (
	"sync"
	"time"

	"github.com/gamerz-app/gamerz/internal/domain"
)

// SendRateLimiter throttles message sends per user with a sliding
// window: at most burst sends within any window interval.
type SendRateLimiter struct {
	mu      sync.Mutex
	history map[domain.UserID][]time.Time
	burst   int
	window  time.Duration
}

func NewSendRateLimiter(burst int, window time.Duration) *SendRateLimiter {
	return &SendRateLimiter{
		history: make(map[domain.UserID][]time.Time),
		burst:   burst,
		window:  window,
	}
}

func (rl *SendRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	attempts := rl.history[uid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.burst {
		rl.history[uid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[uid] = fresh
	return true
}

// Forget drops a user's history, freeing the window state once their
// last connection is gone.
func (rl *SendRateLimiter) Forget(uid domain.UserID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, uid)
}
