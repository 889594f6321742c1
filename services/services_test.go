package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/store/sqlite"
	"habitLoopAPI/internal/testutil"
	"habitLoopAPI/internal/types/habit"
	"habitLoopAPI/internal/types/notification"
	"habitLoopAPI/services"
)

var baseTime = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

type sentPush struct {
	Tokens []string
	Push   *notification.Push
}

// fakePushProvider records pushes and reports each one on sent.
type fakePushProvider struct {
	sent chan sentPush
	err  error
}

func newFakePushProvider() *fakePushProvider {
	return &fakePushProvider{sent: make(chan sentPush, 16)}
}

func (p *fakePushProvider) SendPush(_ context.Context, tokens []notification.DeviceToken, push *notification.Push) error {
	values := make([]string, len(tokens))
	for i, t := range tokens {
		values[i] = t.Token
	}
	p.sent <- sentPush{Tokens: values, Push: push}
	return p.err
}

func (p *fakePushProvider) wait(t *testing.T) sentPush {
	t.Helper()
	select {
	case s := <-p.sent:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push")
		return sentPush{}
	}
}

func (p *fakePushProvider) assertNothingSent(t *testing.T) {
	t.Helper()
	select {
	case s := <-p.sent:
		t.Fatalf("unexpected push %q", s.Push.Title)
	case <-time.After(100 * time.Millisecond):
	}
}

type testEnv struct {
	store         *sqlite.Store
	clock         *fakeClock
	push          *fakePushProvider
	dispatcher    *services.NotificationDispatcher
	users         *services.UserService
	habits        *services.HabitService
	checkins      *services.CheckinService
	groups        *services.GroupService
	notifications *services.NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := testutil.SetupTestDB(t)
	clock := &fakeClock{now: baseTime}
	push := newFakePushProvider()
	dispatcher := services.NewNotificationDispatcher(push)
	t.Cleanup(dispatcher.Stop)

	notifications := services.NewNotificationService(s, dispatcher)
	env := &testEnv{
		store:         s,
		clock:         clock,
		push:          push,
		dispatcher:    dispatcher,
		users:         services.NewUserService(s),
		habits:        services.NewHabitService(s),
		checkins:      services.NewCheckinService(s, notifications),
		groups:        services.NewGroupService(s),
		notifications: notifications,
	}
	env.habits.SetClock(clock.Now)
	env.checkins.SetClock(clock.Now)
	env.groups.SetClock(clock.Now)
	return env
}

func (e *testEnv) createHabit(t *testing.T, clerkID, title string) *habit.Habit {
	t.Helper()

	h, err := e.habits.CreateHabit(context.Background(), clerkID, &habit.CreateHabitRequest{
		Title:     title,
		Frequency: habit.FrequencyDaily,
	})
	require.NoError(t, err)
	return h
}
