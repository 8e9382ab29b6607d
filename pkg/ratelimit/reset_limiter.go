// Package ratelimit bounds password-reset requests per email address with a
// fixed-window counter held in process memory. Counters are lost on restart,
// which is acceptable for this protection; the window does not slide, so a
// burst straddling a window boundary is not smoothed.
package ratelimit

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of requests allowed per window.
	DefaultLimit = 5
	// DefaultWindow is the counting window.
	DefaultWindow = time.Hour
)

type entry struct {
	count       int
	lastAttempt time.Time
}

// Decision is the outcome of a single attempt.
type Decision struct {
	Allowed bool
	// Count is the number of requests recorded in the current window,
	// including this one when allowed.
	Count int
	// RetryAfter is how long the caller should wait when denied, rounded up
	// to the minute that backs Message.
	RetryAfter time.Duration
	// Message is a human-readable denial reason, empty when allowed.
	Message string
}

// ResetLimiter tracks reset requests keyed by normalized email. It is an
// injected component rather than a package-level map so tests can construct
// and discard instances freely.
type ResetLimiter struct {
	mu      sync.Mutex
	entries map[string]entry
	limit   int
	window  time.Duration
	now     func() time.Time
}

// Option customises limiter construction.
type Option func(*ResetLimiter)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *ResetLimiter) {
		l.now = now
	}
}

// NewResetLimiter builds a limiter. Non-positive limit or window fall back to
// the defaults.
func NewResetLimiter(limit int, window time.Duration, opts ...Option) *ResetLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &ResetLimiter{
		entries: make(map[string]entry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NormalizeEmail lowercases and trims an address so "Foo@Bar.COM " and
// "foo@bar.com" share a bucket and an account-lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Attempt records one reset request for the email and decides whether it may
// proceed. The read-modify-write on the shared map is serialized under the
// mutex so concurrent requests for the same address never undercount.
func (l *ResetLimiter) Attempt(email string) Decision {
	key := NormalizeEmail(email)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.lastAttempt) > l.window {
		l.entries[key] = entry{count: 1, lastAttempt: now}
		return Decision{Allowed: true, Count: 1}
	}

	if e.count >= l.limit {
		remaining := l.window - now.Sub(e.lastAttempt)
		minutes := int(math.Ceil(remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return Decision{
			Allowed:    false,
			Count:      e.count,
			RetryAfter: remaining,
			Message:    fmt.Sprintf("too many password reset requests, try again in %d minutes", minutes),
		}
	}

	e.count++
	e.lastAttempt = now
	l.entries[key] = e
	return Decision{Allowed: true, Count: e.count}
}

// Reset clears the counter for an email, used after a successful password
// reset and by tests.
func (l *ResetLimiter) Reset(email string) {
	key := NormalizeEmail(email)
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len reports the number of tracked buckets.
func (l *ResetLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
