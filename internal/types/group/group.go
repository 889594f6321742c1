package group

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/types/checkin"
)

type Type string

const (
	TypePublic     Type = "PUBLIC"
	TypePrivate    Type = "PRIVATE"
	TypeInviteOnly Type = "INVITE_ONLY"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypePublic, TypePrivate, TypeInviteOnly:
		return t, nil
	}
	return "", fmt.Errorf("invalid group type %q: expected PUBLIC, PRIVATE or INVITE_ONLY", s)
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleMember:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q: expected ADMIN or MEMBER", s)
}

const (
	MinMembers     = 2
	MaxMembers     = 10
	DefaultMembers = 6
)

type Group struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Type        Type      `json:"type" db:"type"`
	MaxMembers  int       `json:"max_members" db:"max_members"`
	InviteCode  *string   `json:"invite_code,omitempty" db:"invite_code"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Membership struct {
	GroupID  uuid.UUID `json:"group_id" db:"group_id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Role     Role      `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// Member is a membership joined with the public profile of its user.
type Member struct {
	Membership
	Username string  `json:"username"`
	ImageURL *string `json:"image_url,omitempty"`
}

// SharedHabit is a habit shared into a group, with its owner and the
// check-ins the group is allowed to see.
type SharedHabit struct {
	HabitID       uuid.UUID          `json:"habit_id"`
	Title         string             `json:"title"`
	OwnerID       uuid.UUID          `json:"owner_id"`
	OwnerUsername string             `json:"owner_username"`
	Checkins      []*checkin.CheckIn `json:"checkins"`
	CurrentStreak int                `json:"current_streak"`
	Consistency   int                `json:"consistency"`
}

type GroupView struct {
	Group
	Members []*Member      `json:"members"`
	Habits  []*SharedHabit `json:"habits"`
}

type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	ImageURL    *string   `json:"image_url,omitempty"`
	BestStreak  int       `json:"best_streak"`
	Consistency int       `json:"consistency"`
	Rank        int       `json:"rank"`
}

type Leaderboard struct {
	GroupID uuid.UUID           `json:"group_id"`
	Entries []*LeaderboardEntry `json:"entries"`
}

type InviteQRCode struct {
	GroupID      uuid.UUID `json:"group_id"`
	InviteCode   string    `json:"invite_code"`
	JoinURL      string    `json:"join_url"`
	QrCodeBase64 string    `json:"qr_code_base64"`
}
