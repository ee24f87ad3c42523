package limiter

import (
	"context"
	"sync"
	"time"
)

type attempt struct {
	fails        int
	windowStart  time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter for single-instance deployments.
type Memory struct {
	mu     sync.Mutex
	policy Policy
	now    func() time.Time
	state  map[string]*attempt
}

// NewMemory constructs an in-process limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{policy: p, now: time.Now, state: map[string]*attempt{}}
}

func memKey(key string, ipHash []byte) string { return key + "\x00" + string(ipHash) }

// Allow reports whether login is currently allowed.
func (l *Memory) Allow(_ context.Context, key string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.state[memKey(key, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); a.blockedUntil.After(now) {
		return false, a.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets the counters for (key, ip).
func (l *Memory) Success(_ context.Context, key string, ipHash []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, memKey(key, ipHash))
	return nil
}

// Failure records a failed attempt.
func (l *Memory) Failure(_ context.Context, key string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	k := memKey(key, ipHash)
	a, ok := l.state[k]
	if !ok || now.Sub(a.windowStart) > l.policy.Window {
		a = &attempt{windowStart: now, blockedUntil: blockedUntil(a)}
		l.state[k] = a
	}
	a.fails++
	if a.fails < l.policy.MaxFails {
		return false, 0, nil
	}
	a.fails = 0
	a.blockedUntil = now.Add(l.policy.BlockFor)
	return true, l.policy.BlockFor, nil
}

func blockedUntil(a *attempt) time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.blockedUntil
}
