package server

import (
	"sync"
	"time"
)

// authRateLimiter tracks per-host authentication failures and blocks a
// host once it burns through maxFailures inside the window.
type authRateLimiter struct {
	maxFailures int
	window      time.Duration
	blockFor    time.Duration

	mu      sync.Mutex
	hosts   map[string]*hostFailures
	sweepAt time.Time
}

type hostFailures struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

const limiterSweepEvery = 5 * time.Minute

func newAuthRateLimiter(maxFailures int, window, blockFor time.Duration) *authRateLimiter {
	return &authRateLimiter{
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
		hosts:       make(map[string]*hostFailures),
	}
}

// Allow reports whether the host may attempt authentication now.
func (l *authRateLimiter) Allow(host string, now time.Time) bool {
	if host == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	h, found := l.hosts[host]
	if !found {
		return true
	}
	h.lastSeen = now
	return now.After(h.blockedUntil) || now.Equal(h.blockedUntil)
}

// RegisterFailure records one failed attempt. Failures older than the
// window no longer count; crossing maxFailures blocks the host.
func (l *authRateLimiter) RegisterFailure(host string, now time.Time) {
	if host == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	h, found := l.hosts[host]
	if !found {
		h = &hostFailures{}
		l.hosts[host] = h
	}
	if h.count == 0 || now.Sub(h.windowStart) > l.window {
		h.count = 0
		h.windowStart = now
	}
	h.count++
	h.lastSeen = now
	if h.count >= l.maxFailures {
		h.blockedUntil = now.Add(l.blockFor)
		h.count = 0
	}
}

// Reset forgets a host after a successful authentication.
func (l *authRateLimiter) Reset(host string) {
	if host == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hosts, host)
}

// sweepLocked drops hosts that have been quiet long enough that neither
// their failure window nor a pending block can still matter. Runs at
// most once per limiterSweepEvery.
func (l *authRateLimiter) sweepLocked(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	retain := l.window
	if l.blockFor > retain {
		retain = l.blockFor
	}
	retain *= 2
	for host, h := range l.hosts {
		if now.Sub(h.lastSeen) > retain {
			delete(l.hosts, host)
		}
	}
	l.sweepAt = now.Add(limiterSweepEvery)
}
