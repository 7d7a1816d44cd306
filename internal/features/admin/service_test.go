package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/wellness-streaks/internal/common"
	"serotonyl.ru/wellness-streaks/internal/config"
	"serotonyl.ru/wellness-streaks/internal/features/streak"
)

func newTestService(t *testing.T, hash string) *Service {
	t.Helper()
	cfg := &config.Config{
		AdminPasswordHash:  hash,
		StreakMaxAttempts:  3,
		StreakStoreTimeout: time.Second,
	}
	streaks := streak.NewService(streak.NewEngine(streak.DefaultCatalog()), streak.NewMemoryStore(), cfg)
	s := NewService(streaks, cfg)
	t.Cleanup(s.Close)
	return s
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))

	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "соль должна быть случайной")
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("x", ""))
	assert.False(t, VerifyPassword("x", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA"))
	assert.False(t, VerifyPassword("x", "$argon2id$v=19$garbage$AAAA$AAAA"))
	assert.False(t, VerifyPassword("x", "$argon2id$v=19$m=1,t=1,p=1$!!!$AAAA"))
}

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	s := newTestService(t, hash)

	assert.NoError(t, s.Authenticate("10.0.0.1", "secret"))
	assert.ErrorIs(t, s.Authenticate("10.0.0.1", "nope"), common.ErrWrongPassword)
	assert.ErrorIs(t, s.Authenticate("10.0.0.1", "nope"), common.ErrWrongPassword)
	assert.ErrorIs(t, s.Authenticate("10.0.0.1", "nope"), common.ErrWrongPassword)

	// Четвёртая попытка за час блокируется даже с верным паролем
	assert.ErrorIs(t, s.Authenticate("10.0.0.1", "secret"), common.ErrTooManyAttempts)

	// Другой источник не заблокирован
	assert.NoError(t, s.Authenticate("10.0.0.2", "secret"))
}

func TestAuthenticate_Disabled(t *testing.T) {
	s := newTestService(t, "")

	assert.False(t, s.Enabled())
	assert.ErrorIs(t, s.Authenticate("10.0.0.1", ""), common.ErrUnauthorized)
}

func TestGetUserAndGrantShields(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, "")

	_, err := s.GrantShields(ctx, "u1", -1)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	rec, err := s.GrantShields(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.FreezeShields)

	overview, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, overview.Streak.FreezeShields)
	assert.Empty(t, overview.Rewards.UnlockedRewards)
	assert.False(t, overview.PremiumActive)
}
