package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptAllowsUpToLimit(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewResetLimiter(5, time.Hour, WithClock(func() time.Time { return now }))

	for i := 1; i <= 5; i++ {
		d := limiter.Attempt("student@uni.edu")
		require.True(t, d.Allowed, "attempt %d should be allowed", i)
		assert.Equal(t, i, d.Count)
		now = now.Add(time.Minute)
	}

	d := limiter.Attempt("student@uni.edu")
	assert.False(t, d.Allowed)
	assert.NotEmpty(t, d.Message)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.Contains(t, d.Message, "minutes")
}

func TestAttemptResetsAfterWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewResetLimiter(5, time.Hour, WithClock(func() time.Time { return now }))

	for i := 0; i < 5; i++ {
		limiter.Attempt("student@uni.edu")
	}
	require.False(t, limiter.Attempt("student@uni.edu").Allowed)

	now = now.Add(time.Hour + time.Minute)
	d := limiter.Attempt("student@uni.edu")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestAttemptNormalizesEmail(t *testing.T) {
	limiter := NewResetLimiter(5, time.Hour)

	first := limiter.Attempt("Foo@Bar.COM ")
	second := limiter.Attempt("foo@bar.com")

	require.True(t, first.Allowed)
	require.True(t, second.Allowed)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, 1, limiter.Len())
}

func TestAttemptSeparateBucketsPerEmail(t *testing.T) {
	limiter := NewResetLimiter(1, time.Hour)

	require.True(t, limiter.Attempt("a@uni.edu").Allowed)
	require.False(t, limiter.Attempt("a@uni.edu").Allowed)
	assert.True(t, limiter.Attempt("b@uni.edu").Allowed)
}

func TestAttemptConcurrentSameEmail(t *testing.T) {
	limiter := NewResetLimiter(100, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.Attempt("shared@uni.edu")
		}()
	}
	wg.Wait()

	d := limiter.Attempt("shared@uni.edu")
	require.True(t, d.Allowed)
	assert.Equal(t, 51, d.Count)
}

func TestReset(t *testing.T) {
	limiter := NewResetLimiter(1, time.Hour)

	require.True(t, limiter.Attempt("a@uni.edu").Allowed)
	require.False(t, limiter.Attempt("a@uni.edu").Allowed)

	limiter.Reset("A@uni.edu")
	assert.True(t, limiter.Attempt("a@uni.edu").Allowed)
}
