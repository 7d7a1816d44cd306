package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	want := []Milestone{
		{Streak: 3, Type: RewardFreezeShield, Value: 1},
		{Streak: 7, Type: RewardDeepJournalUnlock},
		{Streak: 14, Type: RewardAnxietyToolkitUnlock},
		{Streak: 30, Type: RewardPremium7Days, Value: 7},
		{Streak: 60, Type: RewardPremium14Days, Value: 14},
	}
	assert.Equal(t, want, c.Milestones())
}

func TestCatalog_AtIsExactMatch(t *testing.T) {
	c := DefaultCatalog()

	assert.Len(t, c.At(3), 1)
	assert.Empty(t, c.At(4))
	assert.Empty(t, c.At(0))
	assert.Empty(t, c.At(61))
}

func TestCatalog_Next(t *testing.T) {
	c := DefaultCatalog()

	next, ok := c.Next(0)
	require.True(t, ok)
	assert.Equal(t, RewardFreezeShield, next.Type)

	next, ok = c.Next(7)
	require.True(t, ok)
	assert.Equal(t, RewardAnxietyToolkitUnlock, next.Type)

	_, ok = c.Next(60)
	assert.False(t, ok)
}

func TestCatalog_MilestonesReturnsCopy(t *testing.T) {
	c := DefaultCatalog()
	m := c.Milestones()
	m[0].Streak = 100

	assert.Equal(t, 3, c.Milestones()[0].Streak)
}

func TestNewCatalog_SortsByThreshold(t *testing.T) {
	c, err := NewCatalog(
		Milestone{Streak: 10, Type: "B"},
		Milestone{Streak: 2, Type: "A"},
	)
	require.NoError(t, err)

	m := c.Milestones()
	assert.Equal(t, RewardType("A"), m[0].Type)
	assert.Equal(t, RewardType("B"), m[1].Type)
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   []Milestone
	}{
		{"нулевой порог", []Milestone{{Streak: 0, Type: "A"}}},
		{"отрицательный порог", []Milestone{{Streak: -1, Type: "A"}}},
		{"пустой тип", []Milestone{{Streak: 1}}},
		{"отрицательное значение", []Milestone{{Streak: 1, Type: "A", Value: -2}}},
		{"повтор типа", []Milestone{{Streak: 1, Type: "A"}, {Streak: 2, Type: "A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.in...)
			assert.Error(t, err)
		})
	}
}

func TestMilestonePayload(t *testing.T) {
	assert.Equal(t, 1, Milestone{Type: RewardFreezeShield}.ShieldGrant())
	assert.Equal(t, 2, Milestone{Type: RewardFreezeShield, Value: 2}.ShieldGrant())
	assert.Equal(t, 0, Milestone{Type: RewardDeepJournalUnlock}.ShieldGrant())

	assert.Equal(t, 7, Milestone{Type: RewardPremium7Days}.PremiumDays())
	assert.Equal(t, 14, Milestone{Type: RewardPremium14Days}.PremiumDays())
	assert.Equal(t, 10, Milestone{Type: RewardPremium7Days, Value: 10}.PremiumDays())
	assert.Equal(t, 0, Milestone{Type: RewardFreezeShield, Value: 3}.PremiumDays())
}
