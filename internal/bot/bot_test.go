package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/wellness-streaks/internal/config"
	"serotonyl.ru/wellness-streaks/internal/features/streak"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		text      string
		cmd       string
		args      []string
		isCommand bool
	}{
		{"/journal", "journal", nil, true},
		{"  /Streak  ", "streak", nil, true},
		{"/streak@wellness_bot", "streak", nil, true},
		{"!огонек", "огонек", nil, true},
		{".checkin сегодня тяжело", "checkin", []string{"сегодня", "тяжело"}, true},
		{"привет", "", nil, false},
		{"/", "", nil, false},
		{"/@bot", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, ok := p.ParseCommand(tt.text)
			assert.Equal(t, tt.isCommand, ok)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}
}

type call struct {
	kind     string
	chatID   int64
	userID   int64
	activity streak.ActivityType
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeHandler) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeHandler) HandleActivity(_ context.Context, chatID, telegramID int64, activity streak.ActivityType) {
	f.record(call{kind: "activity", chatID: chatID, userID: telegramID, activity: activity})
}

func (f *fakeHandler) HandleStreak(_ context.Context, chatID, telegramID int64) {
	f.record(call{kind: "streak", chatID: chatID, userID: telegramID})
}

func (f *fakeHandler) HandleRewards(_ context.Context, chatID, telegramID int64) {
	f.record(call{kind: "rewards", chatID: chatID, userID: telegramID})
}

type fakeSender struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSender) SendText(_ context.Context, _ int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
}

func newTestBot(t *testing.T, limit int) (*Bot, *fakeHandler, *fakeSender) {
	t.Helper()
	h := &fakeHandler{}
	s := &fakeSender{}
	b := New(nil, &config.Config{
		BotMaxInflight:    4,
		RateLimitRequests: limit,
		RateLimitWindow:   time.Minute,
	}, h, s)
	t.Cleanup(b.rateLimiter.Close)
	return b, h, s
}

func privateMessage(userID int64, text string) telego.Update {
	return telego.Update{
		UpdateID: 1,
		Message: &telego.Message{
			Text: text,
			Chat: telego.Chat{ID: userID, Type: telego.ChatTypePrivate},
			From: &telego.User{ID: userID, FirstName: "Аня"},
		},
	}
}

func TestHandleUpdate_RoutesActivities(t *testing.T) {
	b, h, _ := newTestBot(t, 100)
	ctx := context.Background()

	want := map[string]streak.ActivityType{
		"/journal":  streak.ActivityJournalEntry,
		"/coping":   streak.ActivityCopingToolCompleted,
		"/exercise": streak.ActivityGuidedExerciseCompleted,
		"/chat":     streak.ActivityAIChatMeaningfulSession,
		"/checkin":  streak.ActivityDailyCheckIn,
	}
	for text, activity := range want {
		h.calls = nil
		b.handleUpdate(ctx, privateMessage(7, text))
		require.Len(t, h.calls, 1, text)
		assert.Equal(t, call{kind: "activity", chatID: 7, userID: 7, activity: activity}, h.calls[0])
	}

	h.calls = nil
	b.handleUpdate(ctx, privateMessage(7, "/streak"))
	b.handleUpdate(ctx, privateMessage(7, "/rewards"))
	require.Len(t, h.calls, 2)
	assert.Equal(t, "streak", h.calls[0].kind)
	assert.Equal(t, "rewards", h.calls[1].kind)
}

func TestHandleUpdate_HelpAndUnknown(t *testing.T) {
	b, h, s := newTestBot(t, 100)
	ctx := context.Background()

	b.handleUpdate(ctx, privateMessage(7, "/help"))
	b.handleUpdate(ctx, privateMessage(7, "/dance"))

	assert.Empty(t, h.calls)
	require.Len(t, s.texts, 2)
	assert.Contains(t, s.texts[0], "/journal")
	assert.Contains(t, s.texts[1], "/help")
}

func TestHandleUpdate_Ignores(t *testing.T) {
	b, h, s := newTestBot(t, 100)
	ctx := context.Background()

	group := privateMessage(7, "/journal")
	group.Message.Chat = telego.Chat{ID: -100, Type: "supergroup"}
	b.handleUpdate(ctx, group)

	noSender := privateMessage(7, "/journal")
	noSender.Message.From = nil
	b.handleUpdate(ctx, noSender)

	fromBot := privateMessage(7, "/journal")
	fromBot.Message.From.IsBot = true
	b.handleUpdate(ctx, fromBot)

	b.handleUpdate(ctx, privateMessage(7, "просто текст"))
	b.handleUpdate(ctx, telego.Update{UpdateID: 2})

	assert.Empty(t, h.calls)
	assert.Empty(t, s.texts)
}

func TestHandleUpdate_RateLimited(t *testing.T) {
	b, h, _ := newTestBot(t, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.handleUpdate(ctx, privateMessage(7, "/streak"))
	}
	b.handleUpdate(ctx, privateMessage(8, "/streak"))

	assert.Len(t, h.calls, 3)
}

type panickingHandler struct{ fakeHandler }

func (*panickingHandler) HandleStreak(context.Context, int64, int64) {
	panic("boom")
}

func TestHandleUpdate_RecoversFromPanic(t *testing.T) {
	b, _, _ := newTestBot(t, 100)
	b.streakHandler = &panickingHandler{}

	assert.NotPanics(t, func() {
		b.handleUpdate(context.Background(), privateMessage(7, "/streak"))
	})
}
