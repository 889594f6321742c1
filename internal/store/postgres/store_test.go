package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/daykey"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/store/postgres"
	"habitLoopAPI/internal/testutil"
	"habitLoopAPI/internal/types/group"
	"habitLoopAPI/internal/types/habit"
)

func setupTestDB(t *testing.T) *postgres.Store {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	s, err := postgres.New(context.Background(), dbURL, postgres.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func clerkID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func TestCheckinUpsertIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	id := clerkID("user_pg")
	u := testutil.CreateTestUser(t, s, id)
	t.Cleanup(func() { s.DeleteUserByClerkID(context.Background(), id) })

	h := &habit.Habit{UserID: u.ID, Title: "Stretch", Frequency: habit.FrequencyDaily}
	require.NoError(t, s.CreateHabit(ctx, h))

	day := daykey.Today(time.Now())
	first, err := s.Upsert(ctx, h.ID, u.ID, day)
	require.NoError(t, err)
	second, err := s.Upsert(ctx, h.ID, u.ID, day.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, day, second.Date)

	checkins, err := s.ListCheckins(ctx, h.ID, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, checkins, 1)

	require.NoError(t, s.Delete(ctx, h.ID, day, u.ID))
	checkins, err = s.ListCheckins(ctx, h.ID, time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, checkins)
}

func TestGroupCapAndSuccession(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	var ids []string
	var users []uuid.UUID
	for _, p := range []string{"admin", "member", "late"} {
		id := clerkID("user_pg_" + p)
		ids = append(ids, id)
		users = append(users, testutil.CreateTestUser(t, s, id).ID)
	}
	t.Cleanup(func() {
		for _, id := range ids {
			s.DeleteUserByClerkID(context.Background(), id)
		}
	})

	g := &group.Group{Name: "Pg", Type: group.TypePublic, MaxMembers: 2}
	require.NoError(t, s.CreateGroup(ctx, g, users[0]))

	added, err := s.AddMember(ctx, g.ID, users[1], group.RoleMember)
	require.NoError(t, err)
	assert.True(t, added)

	_, err = s.AddMember(ctx, g.ID, users[2], group.RoleMember)
	assert.ErrorIs(t, err, store.ErrGroupFull)

	require.NoError(t, s.RemoveMember(ctx, g.ID, users[0]))
	m, err := s.GetMembership(ctx, g.ID, users[1])
	require.NoError(t, err)
	assert.Equal(t, group.RoleAdmin, m.Role)

	require.NoError(t, s.RemoveMember(ctx, g.ID, users[1]))
	_, err = s.GetGroup(ctx, g.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteUserRunsSuccession(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	adminID, memberID := clerkID("user_pg_owner"), clerkID("user_pg_heir")
	admin := testutil.CreateTestUser(t, s, adminID)
	member := testutil.CreateTestUser(t, s, memberID)
	t.Cleanup(func() { s.DeleteUserByClerkID(context.Background(), memberID) })

	shared := &group.Group{Name: "Shared", Type: group.TypePublic, MaxMembers: 6}
	require.NoError(t, s.CreateGroup(ctx, shared, admin.ID))
	_, err := s.AddMember(ctx, shared.ID, member.ID, group.RoleMember)
	require.NoError(t, err)

	solo := &group.Group{Name: "Solo", Type: group.TypePublic, MaxMembers: 6}
	require.NoError(t, s.CreateGroup(ctx, solo, admin.ID))

	require.NoError(t, s.DeleteUserByClerkID(ctx, adminID))

	m, err := s.GetMembership(ctx, shared.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, group.RoleAdmin, m.Role)

	_, err = s.GetGroup(ctx, solo.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteUserByClerkID(ctx, adminID), store.ErrNotFound)
}
