package streak

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func TestBotUserID(t *testing.T) {
	assert.Equal(t, "tg:123456", BotUserID(123456))
}

func TestHandler_ActivityAndStreak(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t, NewMemoryStore(), serviceStart)
	sender := &fakeSender{}
	h := NewHandler(svc, sender, testConfig())

	h.HandleActivity(ctx, 10, 42, ActivityJournalEntry)
	msg := sender.last(t)
	assert.Equal(t, int64(10), msg.chatID)
	assert.Contains(t, msg.text, "Серия: 1 день")
	assert.Contains(t, msg.text, "До следующей награды: 2 дня")

	clk.Set(serviceStart.AddDate(0, 0, 1))
	h.HandleActivity(ctx, 10, 42, ActivityGuidedExerciseCompleted)
	clk.Set(serviceStart.AddDate(0, 0, 2))
	h.HandleActivity(ctx, 10, 42, ActivityAIChatMeaningfulSession)
	assert.Contains(t, sender.last(t).text, "Открыта награда: 🛡 Щит заморозки")

	h.HandleStreak(ctx, 10, 42)
	msg = sender.last(t)
	assert.Contains(t, msg.text, "Текущая серия: 3 дня")
	assert.Contains(t, msg.text, "Щиты заморозки: 1 щит")
	assert.Contains(t, msg.text, "«📓 Глубокий дневник»: 4 дня")
}

func TestHandler_FreezeMessage(t *testing.T) {
	res := &Result{CurrentStreak: 5, LongestStreak: 5, FreezeUsed: true, FreezeShields: 0}

	text := FormatResult(res, DefaultCatalog())

	assert.Contains(t, text, "Пропуск прощён щитом заморозки, осталось: 0 щитов")
}

func TestHandler_Rewards(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc, _ := newTestService(t, store, serviceStart)
	sender := &fakeSender{}
	h := NewHandler(svc, sender, testConfig())

	h.HandleRewards(ctx, 1, 7)
	assert.Contains(t, sender.last(t).text, "Наград пока нет")

	r := NewRewardRecord(BotUserID(7))
	until := serviceStart.Add(48 * time.Hour)
	r.UnlockedRewards = []RewardType{RewardFreezeShield, RewardPremium7Days}
	r.ActivePremiumUntil = &until
	require.NoError(t, store.Save(ctx, nil, r))

	h.HandleRewards(ctx, 1, 7)
	text := sender.last(t).text
	assert.Contains(t, text, "• 🛡 Щит заморозки")
	assert.Contains(t, text, "• ⭐ Премиум на 7 дней")
	assert.Contains(t, text, "Премиум активен до 03.04.2024 10:00")
}

func TestHandler_UnknownActivity(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryStore(), serviceStart)
	sender := &fakeSender{}
	h := NewHandler(svc, sender, testConfig())

	h.HandleActivity(context.Background(), 1, 1, "DANCING")

	assert.Equal(t, "❌ Неизвестная активность", sender.last(t).text)
}
