package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/types/group"
)

const groupColumns = `id, name, description, type, max_members, invite_code, created_at`

func scanGroup(row interface{ Scan(...any) error }) (*group.Group, error) {
	g := &group.Group{}
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.Type,
		&g.MaxMembers,
		&g.InviteCode,
		&g.CreatedAt,
	)
	return g, err
}

func (s *Store) CreateGroup(ctx context.Context, g *group.Group, creatorID uuid.UUID) error {
	g.ID = uuid.New()
	g.CreatedAt = time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
	INSERT INTO groups (id, name, description, type, max_members, invite_code, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.Name, g.Description, g.Type, g.MaxMembers, g.InviteCode, g.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("invite code already in use")
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	_, err = tx.Exec(ctx, `
	INSERT INTO group_members (group_id, user_id, role, joined_at)
	VALUES ($1, $2, $3, $4)
	`, g.ID, creatorID, group.RoleAdmin, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add group admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID uuid.UUID) (*group.Group, error) {
	g, err := scanGroup(s.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, groupID))
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", notFound(err))
	}
	return g, nil
}

func (s *Store) GetGroupByInviteCode(ctx context.Context, code string) (*group.Group, error) {
	g, err := scanGroup(s.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE invite_code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get group by invite code: %w", notFound(err))
	}
	return g, nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*group.Group, error) {
	query := `
	SELECT g.id, g.name, g.description, g.type, g.max_members, g.invite_code, g.created_at
	FROM groups g
	JOIN group_members gm ON gm.group_id = g.id
	WHERE gm.user_id = $1
	ORDER BY g.created_at DESC
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []*group.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) GetMembership(ctx context.Context, groupID, userID uuid.UUID) (*group.Membership, error) {
	m := &group.Membership{}
	err := s.db.QueryRow(ctx, `
	SELECT group_id, user_id, role, joined_at
	FROM group_members
	WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", notFound(err))
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*group.Member, error) {
	query := `
	SELECT gm.group_id, gm.user_id, gm.role, gm.joined_at, u.username, u.image_url
	FROM group_members gm
	JOIN users u ON u.id = gm.user_id
	WHERE gm.group_id = $1
	ORDER BY gm.joined_at, u.username
	`
	rows, err := s.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*group.Member{}
	for rows.Next() {
		m := &group.Member{}
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.Username, &m.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) AddMember(ctx context.Context, groupID, userID uuid.UUID, role group.Role) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the group row so concurrent joins see each other's inserts.
	var maxMembers int
	err = tx.QueryRow(ctx, `SELECT max_members FROM groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&maxMembers)
	if err != nil {
		return false, fmt.Errorf("failed to lock group: %w", notFound(err))
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return false, nil
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = $1`, groupID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count members: %w", err)
	}
	if count >= maxMembers {
		return false, store.ErrGroupFull
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, NOW())`,
		groupID, userID, role,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit membership: %w", err)
	}
	return true, nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT 1 FROM groups WHERE id = $1 FOR UPDATE`, groupID); err != nil {
		return fmt.Errorf("failed to lock group: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
	DELETE FROM group_habits
	WHERE group_id = $1 AND habit_id IN (SELECT id FROM habits WHERE user_id = $2)
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to unshare member habits: %w", err)
	}

	if err := promoteOrDelete(ctx, tx, groupID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit member removal: %w", err)
	}
	return nil
}

// promoteOrDelete keeps a group with members administered and drops a group
// without any.
func promoteOrDelete(ctx context.Context, tx pgx.Tx, groupID uuid.UUID) error {
	var remaining, admins int
	err := tx.QueryRow(ctx, `
	SELECT COUNT(*), COUNT(*) FILTER (WHERE role = 'ADMIN')
	FROM group_members WHERE group_id = $1
	`, groupID).Scan(&remaining, &admins)
	if err != nil {
		return fmt.Errorf("failed to count remaining members: %w", err)
	}

	switch {
	case remaining == 0:
		if _, err := tx.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID); err != nil {
			return fmt.Errorf("failed to delete empty group: %w", err)
		}
	case admins == 0:
		_, err := tx.Exec(ctx, `
		UPDATE group_members SET role = 'ADMIN'
		WHERE group_id = $1 AND user_id = (
			SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY joined_at LIMIT 1
		)
		`, groupID)
		if err != nil {
			return fmt.Errorf("failed to promote member: %w", err)
		}
	}
	return nil
}

func (s *Store) ShareHabit(ctx context.Context, groupID, habitID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO group_habits (group_id, habit_id, added_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (group_id, habit_id) DO NOTHING
	`, groupID, habitID)
	if err != nil {
		return fmt.Errorf("failed to share habit: %w", err)
	}
	return nil
}

func (s *Store) UnshareHabit(ctx context.Context, groupID, habitID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM group_habits WHERE group_id = $1 AND habit_id = $2`, groupID, habitID)
	if err != nil {
		return fmt.Errorf("failed to unshare habit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListSharedHabits(ctx context.Context, groupID uuid.UUID) ([]*group.SharedHabit, error) {
	query := `
	SELECT h.id, h.title, u.id, u.username
	FROM group_habits gh
	JOIN habits h ON h.id = gh.habit_id
	JOIN users u ON u.id = h.user_id
	WHERE gh.group_id = $1 AND h.is_active = TRUE
	ORDER BY gh.added_at
	`
	rows, err := s.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared habits: %w", err)
	}
	defer rows.Close()

	habits := []*group.SharedHabit{}
	for rows.Next() {
		h := &group.SharedHabit{}
		if err := rows.Scan(&h.HabitID, &h.Title, &h.OwnerID, &h.OwnerUsername); err != nil {
			return nil, fmt.Errorf("failed to scan shared habit: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) HabitAudience(ctx context.Context, habitID, exclude uuid.UUID) ([]uuid.UUID, error) {
	query := `
	SELECT DISTINCT gm.user_id
	FROM group_habits gh
	JOIN group_members gm ON gm.group_id = gh.group_id
	WHERE gh.habit_id = $1 AND gm.user_id <> $2
	`
	rows, err := s.db.Query(ctx, query, habitID, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to load habit audience: %w", err)
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan audience member: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
