package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/types/group"
)

const groupColumns = `id, name, description, type, max_members, invite_code, created_at`

func scanGroup(row interface{ Scan(...any) error }) (*group.Group, error) {
	g := &group.Group{}
	var groupType, createdAt string
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&groupType,
		&g.MaxMembers,
		&g.InviteCode,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	g.Type = group.Type(groupType)
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return g, nil
}

func scanMembership(row interface{ Scan(...any) error }, m *group.Membership, extra ...any) error {
	var role, joinedAt string
	dest := append([]any{&m.GroupID, &m.UserID, &role, &joinedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	m.Role = group.Role(role)
	var err error
	m.JoinedAt, err = parseTime(joinedAt)
	return err
}

func (s *Store) CreateGroup(ctx context.Context, g *group.Group, creatorID uuid.UUID) error {
	g.ID = uuid.New()
	g.CreatedAt = time.Now().UTC()
	ts := formatTime(g.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO groups (id, name, description, type, max_members, invite_code, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID.String(), g.Name, g.Description, string(g.Type), g.MaxMembers, g.InviteCode, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("invite code already in use")
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO group_members (group_id, user_id, role, joined_at)
	VALUES (?, ?, ?, ?)
	`, g.ID.String(), creatorID.String(), string(group.RoleAdmin), ts)
	if err != nil {
		return fmt.Errorf("failed to add group admin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID uuid.UUID) (*group.Group, error) {
	g, err := scanGroup(s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, groupID.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", notFound(err))
	}
	return g, nil
}

func (s *Store) GetGroupByInviteCode(ctx context.Context, code string) (*group.Group, error) {
	g, err := scanGroup(s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE invite_code = ?`, code))
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
	WHERE gm.user_id = ?
	ORDER BY g.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
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
	row := s.db.QueryRowContext(ctx, `
	SELECT group_id, user_id, role, joined_at
	FROM group_members
	WHERE group_id = ? AND user_id = ?
	`, groupID.String(), userID.String())
	if err := scanMembership(row, m); err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", notFound(err))
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*group.Member, error) {
	query := `
	SELECT gm.group_id, gm.user_id, gm.role, gm.joined_at, u.username, u.image_url
	FROM group_members gm
	JOIN users u ON u.id = gm.user_id
	WHERE gm.group_id = ?
	ORDER BY gm.joined_at, u.username
	`
	rows, err := s.db.QueryContext(ctx, query, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*group.Member{}
	for rows.Next() {
		m := &group.Member{}
		if err := scanMembership(rows, &m.Membership, &m.Username, &m.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember runs on the store's only connection, so the count check and the
// insert cannot interleave with another join.
func (s *Store) AddMember(ctx context.Context, groupID, userID uuid.UUID, role group.Role) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxMembers int
	err = tx.QueryRowContext(ctx, `SELECT max_members FROM groups WHERE id = ?`, groupID.String()).Scan(&maxMembers)
	if err != nil {
		return false, fmt.Errorf("failed to load group: %w", notFound(err))
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)`,
		groupID.String(), userID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return false, nil
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = ?`, groupID.String()).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count members: %w", err)
	}
	if count >= maxMembers {
		return false, store.ErrGroupFull
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		groupID.String(), userID.String(), string(role), now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit membership: %w", err)
	}
	return true, nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID.String(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
	DELETE FROM group_habits
	WHERE group_id = ? AND habit_id IN (SELECT id FROM habits WHERE user_id = ?)
	`, groupID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to unshare member habits: %w", err)
	}

	if err := promoteOrDelete(ctx, tx, groupID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member removal: %w", err)
	}
	return nil
}

func promoteOrDelete(ctx context.Context, tx *sql.Tx, groupID uuid.UUID) error {
	var remaining, admins int
	err := tx.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(SUM(CASE WHEN role = 'ADMIN' THEN 1 ELSE 0 END), 0)
	FROM group_members WHERE group_id = ?
	`, groupID.String()).Scan(&remaining, &admins)
	if err != nil {
		return fmt.Errorf("failed to count remaining members: %w", err)
	}

	switch {
	case remaining == 0:
		if _, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, groupID.String()); err != nil {
			return fmt.Errorf("failed to delete empty group: %w", err)
		}
	case admins == 0:
		_, err := tx.ExecContext(ctx, `
		UPDATE group_members SET role = 'ADMIN'
		WHERE group_id = ?1 AND user_id = (
			SELECT user_id FROM group_members WHERE group_id = ?1 ORDER BY joined_at LIMIT 1
		)
		`, groupID.String())
		if err != nil {
			return fmt.Errorf("failed to promote member: %w", err)
		}
	}
	return nil
}

func (s *Store) ShareHabit(ctx context.Context, groupID, habitID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO group_habits (group_id, habit_id, added_at)
	VALUES (?, ?, ?)
	ON CONFLICT (group_id, habit_id) DO NOTHING
	`, groupID.String(), habitID.String(), now())
	if err != nil {
		return fmt.Errorf("failed to share habit: %w", err)
	}
	return nil
}

func (s *Store) UnshareHabit(ctx context.Context, groupID, habitID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM group_habits WHERE group_id = ? AND habit_id = ?`,
		groupID.String(), habitID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to unshare habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
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
	WHERE gh.group_id = ? AND h.is_active = 1
	ORDER BY gh.added_at
	`
	rows, err := s.db.QueryContext(ctx, query, groupID.String())
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
	WHERE gh.habit_id = ? AND gm.user_id <> ?
	`
	rows, err := s.db.QueryContext(ctx, query, habitID.String(), exclude.String())
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
