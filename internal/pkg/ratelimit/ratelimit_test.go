package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_SlidingWindow(t *testing.T) {
	rl := New(2, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// Другой ключ считается отдельно
	assert.True(t, rl.Allow("b"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestReset(t *testing.T) {
	rl := New(1, time.Hour)
	defer rl.Close()

	assert.True(t, rl.Allow("admin"))
	assert.False(t, rl.Allow("admin"))

	rl.Reset("admin")
	assert.True(t, rl.Allow("admin"))
}

func TestClose_Idempotent(t *testing.T) {
	rl := New(1, time.Second)
	rl.Close()
	assert.NotPanics(t, rl.Close)
}
