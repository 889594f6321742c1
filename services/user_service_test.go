package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/testutil"
	"habitLoopAPI/internal/types/group"
	"habitLoopAPI/internal/types/user"
)

func TestUserLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   "user_alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, "alicesmith", u.Username)

	_, err = env.users.CreateUser(ctx, &user.CreateUserRequest{Email: "x@example.com"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := env.users.GetUserByClerkID(ctx, "user_alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, env.users.DeleteUserByClerkID(ctx, "user_alice"))
	_, err = env.users.GetUserByClerkID(ctx, "user_alice")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, env.users.DeleteUserByClerkID(ctx, "user_alice"), apperr.ErrNotFound)
}

func TestSyncUserIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := &user.CreateUserRequest{ClerkID: "user_bob", Email: "bob@example.com", Username: "bob"}

	first, err := env.users.SyncUser(ctx, req)
	require.NoError(t, err)

	again := &user.CreateUserRequest{ClerkID: "user_bob", Email: "bob@new.example.com", Username: "bobby"}
	second, err := env.users.SyncUser(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "bobby", second.Username)
	assert.Equal(t, "bob@new.example.com", second.Email)
}

func TestDeleteUserHandsOverGroups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env.store, "user_alice")
	bob := testutil.CreateTestUser(t, env.store, "user_bob")
	testutil.CreateTestUser(t, env.store, "user_carol")

	shared := env.createGroup(t, "user_alice", group.TypeInviteOnly, 6)
	require.NotNil(t, shared.InviteCode)
	_, err := env.groups.JoinByInviteCode(ctx, "user_bob", *shared.InviteCode)
	require.NoError(t, err)
	_, err = env.groups.JoinByInviteCode(ctx, "user_carol", *shared.InviteCode)
	require.NoError(t, err)
	h := env.createHabit(t, "user_alice", "Stretch")
	require.NoError(t, env.groups.ShareHabit(ctx, "user_alice", shared.ID, h.ID))

	solo := env.createGroup(t, "user_alice", group.TypePublic, 6)

	require.NoError(t, env.users.DeleteUserByClerkID(ctx, "user_alice"))

	view, err := env.groups.GetGroup(ctx, "user_bob", shared.ID)
	require.NoError(t, err)
	require.Len(t, view.Members, 2)
	assert.Empty(t, view.Habits)
	for _, m := range view.Members {
		if m.UserID == bob.ID {
			assert.Equal(t, group.RoleAdmin, m.Role, "longest-standing member takes over")
		} else {
			assert.Equal(t, group.RoleMember, m.Role)
		}
	}

	_, err = env.groups.InviteQRCode(ctx, "user_bob", shared.ID)
	assert.NoError(t, err)

	_, err = env.groups.GetGroup(ctx, "user_bob", solo.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.store.GetGroup(ctx, solo.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "a group left without members is removed")

	assert.ErrorIs(t, env.users.DeleteUserByClerkID(ctx, "user_alice"), apperr.ErrNotFound)
}
