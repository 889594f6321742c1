package group

import "github.com/google/uuid"

type CreateGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Type        Type    `json:"type"`
	MaxMembers  *int    `json:"maxMembers,omitempty"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"inviteCode,omitempty"`
}

type ShareHabitRequest struct {
	HabitID uuid.UUID `json:"habitId"`
}

type NudgeRequest struct {
	UserID uuid.UUID `json:"userId"`
}
