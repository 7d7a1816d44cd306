package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/wellness-streaks/internal/config"
)

type fakeExpirer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeExpirer) ExpirePremium(context.Context) (int, error) {
	f.calls.Add(1)
	return 2, f.err
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeExpirer{}, &config.Config{
		AppTimezone:          "UTC",
		PremiumSweepSchedule: "каждый час",
	})

	assert.Error(t, s.Start(context.Background()))
}

func TestNewScheduler_FallsBackToUTC(t *testing.T) {
	s := NewScheduler(&fakeExpirer{}, &config.Config{AppTimezone: "Nowhere/City"})

	assert.Equal(t, time.UTC, s.location)
}

func TestStart_RunsSweep(t *testing.T) {
	f := &fakeExpirer{}
	s := NewScheduler(f, &config.Config{
		AppTimezone:          "Europe/Moscow",
		PremiumSweepSchedule: "@every 10ms",
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return f.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
}

func TestExpirePremium_SkipsAfterCancel(t *testing.T) {
	f := &fakeExpirer{err: errors.New("boom")}
	s := NewScheduler(f, &config.Config{AppTimezone: "UTC"})

	s.expirePremium(context.Background())
	assert.Equal(t, int32(1), f.calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.expirePremium(ctx)
	assert.Equal(t, int32(1), f.calls.Load())
}
