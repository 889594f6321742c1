package services

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/daykey"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/streak"
	"habitLoopAPI/internal/types/checkin"
	"habitLoopAPI/internal/types/group"
)

const (
	maxGroupNameLen = 50

	inviteCodeLength   = 8
	inviteCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	inviteCodeAttempts = 3

	qrCodeSize = 256
)

type groupStore interface {
	store.UserStore
	store.HabitStore
	store.CheckinStore
	store.GroupStore
}

type GroupService struct {
	store groupStore
	now   Clock
}

func NewGroupService(s groupStore) *GroupService {
	return &GroupService{store: s, now: systemClock}
}

func (s *GroupService) SetClock(c Clock) {
	s.now = c
}

func (s *GroupService) CreateGroup(ctx context.Context, clerkID string, req *group.CreateGroupRequest) (*group.GroupView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxGroupNameLen {
		return nil, apperr.Validation("name", "must be at most %d characters", maxGroupNameLen)
	}
	if _, err := group.ParseType(string(req.Type)); err != nil {
		return nil, apperr.Validation("type", "must be PUBLIC, PRIVATE or INVITE_ONLY")
	}
	maxMembers := group.DefaultMembers
	if req.MaxMembers != nil {
		maxMembers = *req.MaxMembers
	}
	if maxMembers < group.MinMembers || maxMembers > group.MaxMembers {
		return nil, apperr.Validation("maxMembers", "must be between %d and %d", group.MinMembers, group.MaxMembers)
	}

	userID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	g := &group.Group{
		Name:        name,
		Description: req.Description,
		Type:        req.Type,
		MaxMembers:  maxMembers,
	}

	// Retry on the rare invite code collision.
	for attempt := 1; ; attempt++ {
		if g.Type == group.TypeInviteOnly {
			code, err := newInviteCode()
			if err != nil {
				return nil, err
			}
			g.InviteCode = &code
		}

		err = s.store.CreateGroup(ctx, g, userID)
		if err == nil {
			break
		}
		if !errors.Is(err, apperr.ErrConflict) || g.InviteCode == nil || attempt == inviteCodeAttempts {
			return nil, fmt.Errorf("failed to create group: %w", err)
		}
	}

	return s.buildGroupView(ctx, g)
}

// ListGroups returns every group the caller belongs to with its members and
// shared habits.
func (s *GroupService) ListGroups(ctx context.Context, clerkID string) ([]*group.GroupView, error) {
	userID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	views := make([]*group.GroupView, 0, len(groups))
	for _, g := range groups {
		v, err := s.buildGroupView(ctx, g)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// GetGroup is visible to members only. Everyone else gets NotFound.
func (s *GroupService) GetGroup(ctx context.Context, clerkID string, groupID uuid.UUID) (*group.GroupView, error) {
	g, _, err := s.memberGroup(ctx, clerkID, groupID)
	if err != nil {
		return nil, err
	}
	return s.buildGroupView(ctx, g)
}

// JoinGroup adds the caller to a group. PUBLIC groups are open,
// INVITE_ONLY groups need their code and PRIVATE groups cannot be joined
// by request. Joining a group twice is not an error.
func (s *GroupService) JoinGroup(ctx context.Context, clerkID string, groupID uuid.UUID, inviteCode string) (*group.GroupView, error) {
	userID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFoundAs(err, "group")
	}
	return s.join(ctx, g, userID, inviteCode)
}

func (s *GroupService) JoinByInviteCode(ctx context.Context, clerkID, inviteCode string) (*group.GroupView, error) {
	code := normalizeInviteCode(inviteCode)
	if code == "" {
		return nil, apperr.Validation("inviteCode", "is required")
	}

	userID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	g, err := s.store.GetGroupByInviteCode(ctx, code)
	if err != nil {
		return nil, notFoundAs(err, "group")
	}
	return s.join(ctx, g, userID, code)
}

func (s *GroupService) join(ctx context.Context, g *group.Group, userID uuid.UUID, inviteCode string) (*group.GroupView, error) {
	_, err := s.store.GetMembership(ctx, g.ID, userID)
	switch {
	case err == nil:
		return s.buildGroupView(ctx, g)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	switch g.Type {
	case group.TypePrivate:
		return nil, apperr.Forbidden("private groups cannot be joined")
	case group.TypeInviteOnly:
		if g.InviteCode == nil || normalizeInviteCode(inviteCode) != *g.InviteCode {
			return nil, apperr.Forbidden("invalid invite code")
		}
	}

	if _, err := s.store.AddMember(ctx, g.ID, userID, group.RoleMember); err != nil {
		if errors.Is(err, store.ErrGroupFull) {
			return nil, apperr.Conflict("group is full")
		}
		return nil, notFoundAs(err, "group")
	}
	return s.buildGroupView(ctx, g)
}

// LeaveGroup removes the caller. The store promotes a new admin or deletes
// the group when needed.
func (s *GroupService) LeaveGroup(ctx context.Context, clerkID string, groupID uuid.UUID) error {
	userID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return err
	}
	if err := s.store.RemoveMember(ctx, groupID, userID); err != nil {
		return notFoundAs(err, "group")
	}
	return nil
}

// ShareHabit shows one of the caller's habits to a group they belong to.
func (s *GroupService) ShareHabit(ctx context.Context, clerkID string, groupID, habitID uuid.UUID) error {
	g, _, err := s.memberGroup(ctx, clerkID, groupID)
	if err != nil {
		return err
	}
	h, err := findActiveHabit(ctx, s.store, clerkID, habitID)
	if err != nil {
		return err
	}
	if err := s.store.ShareHabit(ctx, g.ID, h.ID); err != nil {
		return fmt.Errorf("failed to share habit: %w", err)
	}
	return nil
}

// UnshareHabit can be done by the habit's owner or a group admin.
func (s *GroupService) UnshareHabit(ctx context.Context, clerkID string, groupID, habitID uuid.UUID) error {
	g, m, err := s.memberGroup(ctx, clerkID, groupID)
	if err != nil {
		return err
	}

	if m.Role != group.RoleAdmin {
		if _, err := s.store.FindOwnedHabit(ctx, habitID, m.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Forbidden("only the owner or a group admin can unshare a habit")
			}
			return fmt.Errorf("failed to find habit: %w", err)
		}
	}

	if err := s.store.UnshareHabit(ctx, g.ID, habitID); err != nil {
		return notFoundAs(err, "shared habit")
	}
	return nil
}

// Leaderboard ranks members by their best current streak among the habits
// they share in the group, then by that habit set's best weekly
// consistency. Tied members share a rank.
func (s *GroupService) Leaderboard(ctx context.Context, clerkID string, groupID uuid.UUID) (*group.Leaderboard, error) {
	g, _, err := s.memberGroup(ctx, clerkID, groupID)
	if err != nil {
		return nil, err
	}
	view, err := s.buildGroupView(ctx, g)
	if err != nil {
		return nil, err
	}

	entries := make([]*group.LeaderboardEntry, 0, len(view.Members))
	byUser := make(map[uuid.UUID]*group.LeaderboardEntry, len(view.Members))
	for _, m := range view.Members {
		e := &group.LeaderboardEntry{UserID: m.UserID, Username: m.Username, ImageURL: m.ImageURL}
		entries = append(entries, e)
		byUser[m.UserID] = e
	}
	for _, h := range view.Habits {
		if e, ok := byUser[h.OwnerID]; ok {
			e.BestStreak = max(e.BestStreak, h.CurrentStreak)
			e.Consistency = max(e.Consistency, h.Consistency)
		}
	}

	slices.SortStableFunc(entries, func(a, b *group.LeaderboardEntry) int {
		return cmp.Or(
			cmp.Compare(b.BestStreak, a.BestStreak),
			cmp.Compare(b.Consistency, a.Consistency),
			strings.Compare(a.Username, b.Username),
		)
	})
	for i, e := range entries {
		e.Rank = i + 1
		if i > 0 {
			prev := entries[i-1]
			if prev.BestStreak == e.BestStreak && prev.Consistency == e.Consistency {
				e.Rank = prev.Rank
			}
		}
	}

	return &group.Leaderboard{GroupID: g.ID, Entries: entries}, nil
}

// InviteQRCode renders the join link of an invite-only group for its admins.
func (s *GroupService) InviteQRCode(ctx context.Context, clerkID string, groupID uuid.UUID) (*group.InviteQRCode, error) {
	g, m, err := s.memberGroup(ctx, clerkID, groupID)
	if err != nil {
		return nil, err
	}
	if m.Role != group.RoleAdmin {
		return nil, apperr.Forbidden("only group admins can share the invite code")
	}
	if g.Type != group.TypeInviteOnly || g.InviteCode == nil {
		return nil, apperr.Forbidden("only invite-only groups have an invite code")
	}

	joinURL := fmt.Sprintf("habitloop://groups/join/%s", *g.InviteCode)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &group.InviteQRCode{
		GroupID:      g.ID,
		InviteCode:   *g.InviteCode,
		JoinURL:      joinURL,
		QrCodeBase64: base64.StdEncoding.EncodeToString(png),
	}, nil
}

// memberGroup loads a group the caller belongs to, with their membership.
func (s *GroupService) memberGroup(ctx context.Context, clerkID string, groupID uuid.UUID) (*group.Group, *group.Membership, error) {
	userID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.store.GetMembership(ctx, groupID, userID)
	if err != nil {
		return nil, nil, notFoundAs(err, "group")
	}
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, notFoundAs(err, "group")
	}
	return g, m, nil
}

// buildGroupView loads members and shared habits. Each shared habit carries
// the last week of check-ins with its streak and weekly consistency.
func (s *GroupService) buildGroupView(ctx context.Context, g *group.Group) (*group.GroupView, error) {
	members, err := s.store.ListMembers(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	habits, err := s.store.ListSharedHabits(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared habits: %w", err)
	}

	today := daykey.Today(s.now())
	if len(habits) > 0 {
		ids := make([]uuid.UUID, len(habits))
		for i, h := range habits {
			ids[i] = h.HabitID
		}
		history, err := s.store.ListCheckinsForHabits(ctx, ids, fullHistory)
		if err != nil {
			return nil, fmt.Errorf("failed to load check-ins: %w", err)
		}
		for _, h := range habits {
			fillSharedHabit(h, history[h.HabitID], today)
		}
	}

	return &group.GroupView{Group: *g, Members: members, Habits: habits}, nil
}

func fillSharedHabit(h *group.SharedHabit, history []*checkin.CheckIn, today time.Time) {
	weekStart := daykey.AddDays(today, -(consistencyWindow - 1))

	h.Checkins = []*checkin.CheckIn{}
	for _, c := range history {
		if !c.Date.Before(weekStart) && !c.Date.After(today) {
			h.Checkins = append(h.Checkins, c)
		}
	}

	entries := checkin.Entries(history)
	h.CurrentStreak = streak.Current(entries, today)
	h.Consistency = streak.Consistency(streak.Window(entries, today, consistencyWindow), consistencyWindow)
}

func newInviteCode() (string, error) {
	alphabetLen := big.NewInt(int64(len(inviteCodeAlphabet)))
	var b strings.Builder
	b.Grow(inviteCodeLength)
	for range inviteCodeLength {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		b.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
