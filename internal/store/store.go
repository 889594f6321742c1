// Package store declares the persistence boundary of the service. The
// postgres and sqlite subpackages implement it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/types/checkin"
	"habitLoopAPI/internal/types/group"
	"habitLoopAPI/internal/types/habit"
	"habitLoopAPI/internal/types/notification"
	"habitLoopAPI/internal/types/user"
)

var (
	ErrNotFound  = fmt.Errorf("record %w", apperr.ErrNotFound)
	ErrGroupFull = apperr.Conflict("group is full")
)

type UserStore interface {
	CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	UserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error)
	UpdateUserByClerkID(ctx context.Context, clerkID string, req *user.UpdateUserRequest) (*user.User, error)
	// DeleteUserByClerkID removes the user and what they own, promoting or
	// deleting each group they leave behind.
	DeleteUserByClerkID(ctx context.Context, clerkID string) error
}

type HabitStore interface {
	// CreateHabit inserts h and fills in its ID and CreatedAt.
	CreateHabit(ctx context.Context, h *habit.Habit) error
	// FindOwnedHabit returns ErrNotFound unless the habit exists and belongs
	// to ownerID. Inactive habits are returned; callers decide what that means.
	FindOwnedHabit(ctx context.Context, habitID, ownerID uuid.UUID) (*habit.Habit, error)
	ListActiveHabits(ctx context.Context, ownerID uuid.UUID) ([]*habit.Habit, error)
	UpdateHabit(ctx context.Context, h *habit.Habit) error
	SetHabitActive(ctx context.Context, habitID, ownerID uuid.UUID, active bool) error
	HabitGroups(ctx context.Context, habitIDs []uuid.UUID) (map[uuid.UUID][]habit.GroupRef, error)
}

type CheckinStore interface {
	// Upsert marks (habitID, day) completed, creating the record if absent.
	Upsert(ctx context.Context, habitID, ownerID uuid.UUID, day time.Time) (*checkin.CheckIn, error)
	// Delete removes the (habitID, day) record if present and owned by
	// ownerID. Deleting a missing record is not an error.
	Delete(ctx context.Context, habitID uuid.UUID, day time.Time, ownerID uuid.UUID) error
	// ListCheckins returns the habit's check-ins newest first. A zero since
	// means no lower bound and limit <= 0 means no limit.
	ListCheckins(ctx context.Context, habitID uuid.UUID, since time.Time, limit int) ([]*checkin.CheckIn, error)
	// ListCheckinsForHabits groups check-ins by habit, newest first, with the
	// same zero-since rule as ListCheckins.
	ListCheckinsForHabits(ctx context.Context, habitIDs []uuid.UUID, since time.Time) (map[uuid.UUID][]*checkin.CheckIn, error)
	// MarkNotified records that the group was told about (habitID, day). It
	// reports false when the day was already marked, even if the check-in has
	// since been undone and redone.
	MarkNotified(ctx context.Context, habitID uuid.UUID, day time.Time) (bool, error)
}

type GroupStore interface {
	// CreateGroup inserts g and makes creatorID its first admin in one
	// transaction.
	CreateGroup(ctx context.Context, g *group.Group, creatorID uuid.UUID) error
	GetGroup(ctx context.Context, groupID uuid.UUID) (*group.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*group.Group, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*group.Group, error)
	GetMembership(ctx context.Context, groupID, userID uuid.UUID) (*group.Membership, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]*group.Member, error)
	// AddMember is idempotent and reports whether a new membership was
	// created. It returns ErrGroupFull when the group is at max_members.
	AddMember(ctx context.Context, groupID, userID uuid.UUID, role group.Role) (bool, error)
	// RemoveMember drops the membership and the member's shared habits. The
	// oldest remaining member is promoted if no admin is left, and an empty
	// group is deleted.
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	ShareHabit(ctx context.Context, groupID, habitID uuid.UUID) error
	UnshareHabit(ctx context.Context, groupID, habitID uuid.UUID) error
	ListSharedHabits(ctx context.Context, groupID uuid.UUID) ([]*group.SharedHabit, error)
	// HabitAudience returns the users, other than exclude, who belong to a
	// group the habit is shared in.
	HabitAudience(ctx context.Context, habitID, exclude uuid.UUID) ([]uuid.UUID, error)
}

type DeviceStore interface {
	UpsertDeviceToken(ctx context.Context, token *notification.DeviceToken) error
	ListDeviceTokens(ctx context.Context, userIDs []uuid.UUID) ([]notification.DeviceToken, error)
}

type Store interface {
	UserStore
	HabitStore
	CheckinStore
	GroupStore
	DeviceStore

	Ping(ctx context.Context) error
	Close() error
}
