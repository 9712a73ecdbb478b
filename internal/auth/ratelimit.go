package auth

import (
	"sync"
	"time"
)

// LoginLimiter throttles credential-validation attempts per source address.
// It is purely in-memory; restarting the process forgets all attempt state.
type LoginLimiter struct {
	mu       sync.RWMutex
	attempts map[string]*attemptInfo

	maxAttempts int
	window      time.Duration
	blockTime   time.Duration
}

type attemptInfo struct {
	count     int
	firstTry  time.Time
	blockedAt time.Time
}

// NewLoginLimiter creates a limiter allowing maxAttempts failures within
// window before blocking the key for blockTime.
func NewLoginLimiter(maxAttempts int, window, blockTime time.Duration) *LoginLimiter {
	ll := &LoginLimiter{
		attempts:    make(map[string]*attemptInfo),
		maxAttempts: maxAttempts,
		window:      window,
		blockTime:   blockTime,
	}
	go ll.cleanup()
	return ll
}

// Allow reports whether the key (normally a client IP) may attempt a login.
func (ll *LoginLimiter) Allow(key string) bool {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	now := time.Now()
	info, exists := ll.attempts[key]

	if !exists {
		ll.attempts[key] = &attemptInfo{count: 1, firstTry: now}
		return true
	}

	if !info.blockedAt.IsZero() {
		if now.Sub(info.blockedAt) < ll.blockTime {
			return false
		}
		// Block expired, reset
		info.count = 1
		info.firstTry = now
		info.blockedAt = time.Time{}
		return true
	}

	if now.Sub(info.firstTry) > ll.window {
		// Window expired, reset
		info.count = 1
		info.firstTry = now
		return true
	}

	info.count++
	if info.count > ll.maxAttempts {
		info.blockedAt = now
		return false
	}

	return true
}

// RecordSuccess clears attempt state after a successful login.
func (ll *LoginLimiter) RecordSuccess(key string) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	delete(ll.attempts, key)
}

// BlockedUntil returns when the block on key expires, or the zero time if
// the key is not blocked.
func (ll *LoginLimiter) BlockedUntil(key string) time.Time {
	ll.mu.RLock()
	defer ll.mu.RUnlock()

	info, exists := ll.attempts[key]
	if !exists || info.blockedAt.IsZero() {
		return time.Time{}
	}

	until := info.blockedAt.Add(ll.blockTime)
	if time.Now().After(until) {
		return time.Time{}
	}
	return until
}

// cleanup drops stale entries so the map does not grow without bound.
func (ll *LoginLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		ll.mu.Lock()
		now := time.Now()
		for key, info := range ll.attempts {
			stale := now.Sub(info.firstTry) > ll.window
			if !info.blockedAt.IsZero() {
				stale = now.Sub(info.blockedAt) > ll.blockTime
			}
			if stale {
				delete(ll.attempts, key)
			}
		}
		ll.mu.Unlock()
	}
}
