package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/storage"
)

// FindOpenGroups returns up to limit open groups for an activity type,
// in the store's natural order.
func (s *SQLiteStore) FindOpenGroups(ctx context.Context, activityType string, limit int) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, activity_type, params, created_by, max_size, is_open, created_at
		 FROM groups
		 WHERE activity_type = ? AND is_open = 1
		 LIMIT ?`,
		activityType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query open groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

// CountMembers returns the number of membership rows for a group.
func (s *SQLiteStore) CountMembers(ctx context.Context, groupID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM group_members WHERE group_id = ?",
		groupID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// CreateGroup persists a new group, generating its ID and CreatedAt
// when unset. Params are stored as a JSON text column.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	params, err := encodeParams(group.Params)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, activity_type, params, created_by, max_size, is_open, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.ActivityType, params,
		group.CreatedBy, group.MaxSize, boolToInt(group.IsOpen), group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	return nil
}

// AddMember inserts a membership row. A violation of the composite
// primary key is reported as MemberAlreadyExists, detected via the
// driver's typed error codes rather than message text.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID, userID string) (storage.AddMemberResult, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		groupID, userID, time.Now().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.MemberAlreadyExists, nil
		}
		return 0, fmt.Errorf("failed to insert member: %w", err)
	}
	return storage.MemberAdded, nil
}

// GetGroup retrieves a single group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, activity_type, params, created_by, max_size, is_open, created_at
		 FROM groups
		 WHERE id = ?`,
		groupID,
	)

	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}

	return group, nil
}

// ListMembers returns all memberships for a group, oldest first.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, user_id, joined_at FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner) (*models.Group, error) {
	group := &models.Group{}
	var params string
	var isOpen int
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.ActivityType,
		&params,
		&group.CreatedBy,
		&group.MaxSize,
		&isOpen,
		&group.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}

	group.IsOpen = isOpen != 0
	if err := json.Unmarshal([]byte(params), &group.Params); err != nil {
		return nil, fmt.Errorf("failed to decode group params: %w", err)
	}

	return group, nil
}

func encodeParams(params map[string]any) (string, error) {
	if params == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode group params: %w", err)
	}
	return string(encoded), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a primary-key or unique
// constraint violation from the SQLite driver.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
