package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/daykey"
	"habitLoopAPI/internal/testutil"
)

func TestCheckInTwiceKeepsOneRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env.store, "user_alice")
	h := env.createHabit(t, "user_alice", "Read")

	first, err := env.checkins.CheckIn(ctx, "user_alice", h.ID)
	require.NoError(t, err)
	assert.True(t, first.Completed)
	assert.Equal(t, daykey.Today(baseTime), first.Date)

	second, err := env.checkins.CheckIn(ctx, "user_alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	views, err := env.habits.ListHabits(ctx, "user_alice")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Len(t, views[0].Checkins, 1)
}

func TestStreakStopsAtGap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env.store, "user_alice")
	h := env.createHabit(t, "user_alice", "Read")

	// Four days ago, then the last three days in a row.
	for _, offset := range []int{-4, 2, 1, 1} {
		env.clock.AddDays(offset)
		_, err := env.checkins.CheckIn(ctx, "user_alice", h.ID)
		require.NoError(t, err)
	}

	view, err := env.habits.GetHabit(ctx, "user_alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.CurrentStreak)
	assert.True(t, view.CheckedInToday)
}

func TestStreakIsZeroUntilTodayIsDone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env.store, "user_alice")
	h := env.createHabit(t, "user_alice", "Read")

	env.clock.AddDays(-1)
	_, err := env.checkins.CheckIn(ctx, "user_alice", h.ID)
	require.NoError(t, err)
	env.clock.AddDays(1)

	view, err := env.habits.GetHabit(ctx, "user_alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentStreak)
	assert.False(t, view.CheckedInToday)
}

func TestUndo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env.store, "user_alice")
	h := env.createHabit(t, "user_alice", "Read")

	_, err := env.checkins.CheckIn(ctx, "user_alice", h.ID)
	require.NoError(t, err)

	require.NoError(t, env.checkins.Undo(ctx, "user_alice", h.ID))
	require.NoError(t, env.checkins.Undo(ctx, "user_alice", h.ID))

	view, err := env.habits.GetHabit(ctx, "user_alice", h.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Checkins)
	assert.False(t, view.CheckedInToday)
}

func TestCheckInRejectsOtherUsersHabit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env.store, "user_alice")
	testutil.CreateTestUser(t, env.store, "user_bob")
	h := env.createHabit(t, "user_alice", "Read")

	_, err := env.checkins.CheckIn(ctx, "user_bob", h.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, env.checkins.Undo(ctx, "user_bob", h.ID), apperr.ErrNotFound)

	_, err = env.checkins.CheckIn(ctx, "user_nobody", h.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
