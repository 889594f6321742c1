package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/daykey"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/testutil"
	"habitLoopAPI/internal/types/group"
	"habitLoopAPI/internal/types/habit"
	"habitLoopAPI/internal/types/notification"
	"habitLoopAPI/internal/types/user"
)

func TestUsers(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()

	u := testutil.CreateTestUser(t, s, "user_alice")
	assert.Equal(t, "user_alice", u.Username)

	_, err := s.CreateUser(ctx, &user.CreateUserRequest{ClerkID: "user_alice", Email: "x@example.com", Username: "x"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	id, err := s.UserIDByClerkID(ctx, "user_alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	name := "alice"
	updated, err := s.UpdateUserByClerkID(ctx, "user_alice", &user.UpdateUserRequest{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, u.Email, updated.Email)

	require.NoError(t, s.DeleteUserByClerkID(ctx, "user_alice"))
	_, err = s.GetUserByClerkID(ctx, "user_alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUserByClerkID(ctx, "user_alice"), apperr.ErrNotFound)
}

func TestHabitsAndCheckins(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateTestUser(t, s, "user_alice")
	bob := testutil.CreateTestUser(t, s, "user_bob")

	h := &habit.Habit{UserID: alice.ID, Title: "Read", Frequency: habit.FrequencyDaily}
	require.NoError(t, s.CreateHabit(ctx, h))
	assert.True(t, h.IsActive)

	_, err := s.FindOwnedHabit(ctx, h.ID, bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.FindOwnedHabit(ctx, h.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", found.Title)
	assert.Equal(t, habit.FrequencyDaily, found.Frequency)

	day := time.Date(2024, 3, 10, 18, 45, 0, 0, time.UTC)
	first, err := s.Upsert(ctx, h.ID, alice.ID, day)
	require.NoError(t, err)
	assert.Equal(t, daykey.Normalize(day), first.Date)
	assert.True(t, first.Completed)

	// A second check-in on the same day updates the existing record.
	second, err := s.Upsert(ctx, h.ID, alice.ID, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = s.Upsert(ctx, h.ID, alice.ID, daykey.AddDays(day, -1))
	require.NoError(t, err)

	all, err := s.ListCheckins(ctx, h.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Date.After(all[1].Date), "newest first")

	limited, err := s.ListCheckins(ctx, h.ID, time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	since, err := s.ListCheckins(ctx, h.ID, day, 0)
	require.NoError(t, err)
	assert.Len(t, since, 1)

	byHabit, err := s.ListCheckinsForHabits(ctx, []uuid.UUID{h.ID}, daykey.AddDays(day, -30))
	require.NoError(t, err)
	assert.Len(t, byHabit[h.ID], 2)

	byHabit, err = s.ListCheckinsForHabits(ctx, []uuid.UUID{h.ID}, day)
	require.NoError(t, err)
	assert.Len(t, byHabit[h.ID], 1)

	byHabit, err = s.ListCheckinsForHabits(ctx, []uuid.UUID{h.ID}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, byHabit[h.ID], 2, "zero since means no lower bound")

	// Deleting someone else's record is a no-op.
	require.NoError(t, s.Delete(ctx, h.ID, day, bob.ID))
	require.NoError(t, s.Delete(ctx, h.ID, day, alice.ID))
	require.NoError(t, s.Delete(ctx, h.ID, day, alice.ID))
	all, err = s.ListCheckins(ctx, h.ID, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	marked, err := s.MarkNotified(ctx, h.ID, day)
	require.NoError(t, err)
	assert.True(t, marked)
	marked, err = s.MarkNotified(ctx, h.ID, day.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, marked, "same day is marked once")
	marked, err = s.MarkNotified(ctx, h.ID, daykey.AddDays(day, 1))
	require.NoError(t, err)
	assert.True(t, marked)

	require.NoError(t, s.SetHabitActive(ctx, h.ID, alice.ID, false))
	active, err := s.ListActiveHabits(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.ErrorIs(t, s.SetHabitActive(ctx, h.ID, bob.ID, true), store.ErrNotFound)
}

func TestGroupMembership(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateTestUser(t, s, "user_alice")
	bob := testutil.CreateTestUser(t, s, "user_bob")
	carol := testutil.CreateTestUser(t, s, "user_carol")

	code := "ABCD1234"
	g := &group.Group{Name: "Runners", Type: group.TypeInviteOnly, MaxMembers: 2, InviteCode: &code}
	require.NoError(t, s.CreateGroup(ctx, g, alice.ID))

	byCode, err := s.GetGroupByInviteCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, g.ID, byCode.ID)
	assert.Equal(t, group.TypeInviteOnly, byCode.Type)

	m, err := s.GetMembership(ctx, g.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, group.RoleAdmin, m.Role)

	added, err := s.AddMember(ctx, g.ID, bob.ID, group.RoleMember)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddMember(ctx, g.ID, bob.ID, group.RoleMember)
	require.NoError(t, err)
	assert.False(t, added, "joining twice is idempotent")

	_, err = s.AddMember(ctx, g.ID, carol.ID, group.RoleMember)
	assert.ErrorIs(t, err, store.ErrGroupFull)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	h := &habit.Habit{UserID: bob.ID, Title: "Run", Frequency: habit.FrequencyDaily}
	require.NoError(t, s.CreateHabit(ctx, h))
	require.NoError(t, s.ShareHabit(ctx, g.ID, h.ID))
	require.NoError(t, s.ShareHabit(ctx, g.ID, h.ID))

	refs, err := s.HabitGroups(ctx, []uuid.UUID{h.ID})
	require.NoError(t, err)
	require.Len(t, refs[h.ID], 1)
	assert.Equal(t, "Runners", refs[h.ID][0].Name)

	audience, err := s.HabitAudience(ctx, h.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.ID}, audience)

	// The admin leaving promotes bob and keeps bob's shared habit.
	require.NoError(t, s.RemoveMember(ctx, g.ID, alice.ID))
	m, err = s.GetMembership(ctx, g.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, group.RoleAdmin, m.Role)

	shared, err := s.ListSharedHabits(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, shared, 1)

	// The last member leaving deletes the group.
	require.NoError(t, s.RemoveMember(ctx, g.ID, bob.ID))
	_, err = s.GetGroup(ctx, g.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.RemoveMember(ctx, g.ID, bob.ID), store.ErrNotFound)
}

func TestAddMemberConcurrentJoinsRespectCap(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()
	admin := testutil.CreateTestUser(t, s, "user_admin")

	g := &group.Group{Name: "Crowd", Type: group.TypePublic, MaxMembers: 3}
	require.NoError(t, s.CreateGroup(ctx, g, admin.ID))

	var users []uuid.UUID
	for _, id := range []string{"user_a", "user_b", "user_c", "user_d", "user_e"} {
		users = append(users, testutil.CreateTestUser(t, s, id).ID)
	}

	var wg sync.WaitGroup
	for _, id := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddMember(ctx, g.ID, id, group.RoleMember)
		}()
	}
	wg.Wait()

	members, err := s.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestDeviceTokens(t *testing.T) {
	s := testutil.SetupTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateTestUser(t, s, "user_alice")

	require.NoError(t, s.UpsertDeviceToken(ctx, &notification.DeviceToken{UserID: alice.ID, Token: "tok", Platform: "ios"}))
	require.NoError(t, s.UpsertDeviceToken(ctx, &notification.DeviceToken{UserID: alice.ID, Token: "tok", Platform: "android"}))

	tokens, err := s.ListDeviceTokens(ctx, []uuid.UUID{alice.ID})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "android", tokens[0].Platform)

	tokens, err = s.ListDeviceTokens(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
