package ratelimiting

import (
	"net/http"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockedRateLimiter struct {
	consumeFunc func(key string) (bool, time.Duration)
}

func (m *mockedRateLimiter) Consume(key string) (bool, time.Duration) {
	return m.consumeFunc(key)
}

func TestTokenBucketRateLimiter(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rateLimiter := NewTokenBucketRateLimiter(1, 2)

		allowed, _ := rateLimiter.Consume("user2")
		require.True(t, allowed)

		// Burst of 2
		for range 2 {
			allowed, _ := rateLimiter.Consume("user1")
			require.True(t, allowed)
		}
		allowed, retryAfter := rateLimiter.Consume("user1")
		require.False(t, allowed)
		require.Equal(t, time.Second, retryAfter)

		time.Sleep(400 * time.Millisecond)

		// A rejected request does not take a token
		allowed, retryAfter = rateLimiter.Consume("user1")
		require.False(t, allowed)
		require.Equal(t, 600*time.Millisecond, retryAfter)

		time.Sleep(600 * time.Millisecond)

		// Refill rate of 1
		allowed, _ = rateLimiter.Consume("user1")
		require.True(t, allowed)
		allowed, _ = rateLimiter.Consume("user1")
		require.False(t, allowed)

		// Burst of 2 - even after refill
		for _, key := range []string{"user3", "user2"} {
			for range 2 {
				allowed, _ := rateLimiter.Consume(key)
				require.True(t, allowed, key)
			}
			allowed, _ := rateLimiter.Consume(key)
			require.False(t, allowed, key)
		}
	})
}

func TestTokenBucketRateLimiterFractionalRefill(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rateLimiter := NewTokenBucketRateLimiter(0.5, 1)

		allowed, _ := rateLimiter.Consume("ip: 1.1.1.1")
		require.True(t, allowed)

		allowed, retryAfter := rateLimiter.Consume("ip: 1.1.1.1")
		require.False(t, allowed)
		require.Equal(t, 2*time.Second, retryAfter)
	})
}

func TestTokenBucketRateLimiterSweepsIdleBuckets(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rateLimiter := NewTokenBucketRateLimiter(1, 1).(*tokenBucketRateLimiter)

		allowed, _ := rateLimiter.Consume("ip: 1.1.1.1")
		require.True(t, allowed)
		require.Equal(t, 1, rateLimiter.limiterByKey.Len())

		time.Sleep(idleBucketTTL + time.Second)

		allowed, _ = rateLimiter.Consume("ip: 2.2.2.2")
		require.True(t, allowed)
		require.Equal(t, []string{"ip: 2.2.2.2"}, rateLimiter.limiterByKey.Keys())
	})
}

func TestIPKeyFunc(t *testing.T) {
	t.Parallel()

	for _, c := range []struct {
		remoteAddr string
		expected   string
	}{
		{remoteAddr: "123.123.123.123", expected: "ip: 123.123.123.123"},
		{remoteAddr: "123.123.123.123:54321", expected: "ip: 123.123.123.123"},
		{remoteAddr: "[2001:db8::1]:8080", expected: "ip: 2001:db8::1"},
	} {
		t.Run(c.remoteAddr, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, c.expected, IPKeyFunc(&http.Request{RemoteAddr: c.remoteAddr}))
		})
	}
}

func TestRequestBasedRateLimiter(t *testing.T) {
	t.Parallel()

	var expectedKey string
	var allowed bool
	rateLimiter := &mockedRateLimiter{
		consumeFunc: func(key string) (bool, time.Duration) {
			assert.Equal(t, expectedKey, key)
			if !allowed {
				return false, time.Second
			}
			return true, 0
		},
	}
	requestRateLimiter := NewRequestBasedRateLimiter(rateLimiter, IPKeyFunc)

	expectedKey = "ip: 1.1.1.1"
	allowed = true
	ok, _ := requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1:1234"})
	assert.True(t, ok)
	allowed = false
	ok, retryAfter := requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1:1235"})
	assert.False(t, ok)
	assert.Equal(t, time.Second, retryAfter)

	expectedKey = "ip: 2.1.1.1"
	allowed = true
	ok, _ = requestRateLimiter.Consume(&http.Request{RemoteAddr: "2.1.1.1"})
	assert.True(t, ok)
	assert.Equal(t, "ip: 2.1.1.1", requestRateLimiter.KeyFor(&http.Request{RemoteAddr: "2.1.1.1"}))
}
