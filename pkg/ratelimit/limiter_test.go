package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := New(3, time.Minute, time.Hour)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		ok, backoff := l.Allowed("tenant:alice")
		require.True(t, ok, "request %d should be admitted", i)
		assert.Zero(t, backoff)
	}

	ok, backoff := l.Allowed("tenant:alice")
	assert.False(t, ok, "fourth request should be rejected")
	assert.Greater(t, backoff, 0.0)
}

func TestLimiter_IndependentIdentifiers(t *testing.T) {
	l := New(1, time.Minute, time.Hour)
	defer l.Stop()

	okA, _ := l.Allowed("tenant:alice")
	okB, _ := l.Allowed("tenant:bob")

	assert.True(t, okA)
	assert.True(t, okB, "a different identifier must have its own window")
}

func TestLimiter_WindowExpiryReadmits(t *testing.T) {
	l := New(1, 20*time.Millisecond, time.Hour)
	defer l.Stop()

	ok, _ := l.Allowed("tenant:alice")
	require.True(t, ok)

	ok, _ = l.Allowed("tenant:alice")
	require.False(t, ok, "second request within the window must be rejected")

	time.Sleep(30 * time.Millisecond)

	ok, _ = l.Allowed("tenant:alice")
	assert.True(t, ok, "request after the window expires must be admitted")
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute, time.Hour)
	defer l.Stop()

	ok, _ := l.Allowed("tenant:alice")
	require.True(t, ok)

	ok, _ = l.Allowed("tenant:alice")
	require.False(t, ok)

	l.Reset("tenant:alice")

	ok, _ = l.Allowed("tenant:alice")
	assert.True(t, ok, "reset identifier should be admitted again")
}

func TestLimiter_Stats(t *testing.T) {
	l := New(5, time.Minute, time.Hour)
	defer l.Stop()

	l.Allowed("a")
	l.Allowed("a")
	l.Allowed("b")

	windows, total := l.Stats()
	assert.Equal(t, 2, windows)
	assert.EqualValues(t, 3, total)
}

func TestLimiter_SweepDropsStaleWindows(t *testing.T) {
	l := New(5, time.Minute, 10*time.Millisecond)
	defer l.Stop()

	l.Allowed("a")
	windows, _ := l.Stats()
	require.Equal(t, 1, windows)

	time.Sleep(60 * time.Millisecond)

	windows, _ = l.Stats()
	assert.Zero(t, windows, "stale windows should be swept away")
}
