package services

import (
	"math"
	"sync"
	"time"
)

const (
	ThrottleChannelHTTP        = "http"
	ThrottleChannelTelegram    = "telegram"
	ThrottleCooldownCapSeconds = 30

	// throttleForget is how long after its cooldown ends an entry is
	// dropped; the fail count restarts from zero after that.
	throttleForget = 10 * time.Minute
)

type throttleEntry struct {
	failCount     int
	cooldownUntil time.Time
}

// LoginThrottle slows down repeated admin login failures. Each failure sets
// a cooldown of min(30, 2^failCount) seconds; a success clears it. Entries
// are keyed by channel and caller (client IP, Telegram user id).
type LoginThrottle struct {
	mu        sync.Mutex
	entries   map[string]*throttleEntry
	lastSweep time.Time
	now       func() time.Time
}

func NewLoginThrottle() *LoginThrottle {
	return &LoginThrottle{entries: make(map[string]*throttleEntry), now: time.Now}
}

func throttleKey(channel, caller string) string { return channel + ":" + caller }

// WaitSeconds returns how many seconds the caller must wait before trying
// again (0 if no cooldown).
func (t *LoginThrottle) WaitSeconds(channel, caller string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[throttleKey(channel, caller)]
	if !ok {
		return 0
	}
	now := t.now()
	if !now.Before(e.cooldownUntil) {
		return 0
	}
	return int(e.cooldownUntil.Sub(now).Seconds()) + 1 // round up
}

// RecordFailed bumps the fail count and starts the next cooldown.
func (t *LoginThrottle) RecordFailed(channel, caller string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := throttleKey(channel, caller)
	now := t.now()
	t.sweepLocked(now)
	e, ok := t.entries[key]
	if !ok {
		e = &throttleEntry{}
		t.entries[key] = e
	}
	e.failCount++
	e.cooldownUntil = now.Add(time.Duration(CooldownSecondsForFailCount(e.failCount)) * time.Second)
}

// sweepLocked drops entries idle for throttleForget, at most once a minute.
func (t *LoginThrottle) sweepLocked(now time.Time) {
	if now.Sub(t.lastSweep) < time.Minute {
		return
	}
	t.lastSweep = now
	for key, e := range t.entries {
		if now.Sub(e.cooldownUntil) > throttleForget {
			delete(t.entries, key)
		}
	}
}

// Len reports how many callers are tracked.
func (t *LoginThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// RecordSuccess forgets the caller's failures.
func (t *LoginThrottle) RecordSuccess(channel, caller string) {
	t.mu.Lock()
	delete(t.entries, throttleKey(channel, caller))
	t.mu.Unlock()
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}
