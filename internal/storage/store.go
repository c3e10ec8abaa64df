// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/linkup-app/linkup/internal/models"
)

// ErrGroupNotFound is returned when a lookup references a group that
// does not exist.
var ErrGroupNotFound = errors.New("group not found")

// AddMemberResult reports the outcome of a membership insert.
type AddMemberResult int

const (
	// MemberAdded means a new membership row was created.
	MemberAdded AddMemberResult = iota

	// MemberAlreadyExists means the (group, user) pair was already
	// present. Callers treat this as success: it is what makes the
	// join operation idempotent.
	MemberAlreadyExists
)

// Store defines the interface for group and membership storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer, and lets tests substitute a fake.
type Store interface {
	// FindOpenGroups returns up to limit groups for the given activity
	// type that are still open. No ordering is imposed beyond the
	// store's natural return order.
	FindOpenGroups(ctx context.Context, activityType string, limit int) ([]models.Group, error)

	// CountMembers returns the current number of members in a group.
	CountMembers(ctx context.Context, groupID string) (int, error)

	// CreateGroup persists a new group. The group.ID and
	// group.CreatedAt fields are populated by the store when unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// AddMember records that a user belongs to a group. A duplicate
	// (group, user) pair is reported as MemberAlreadyExists rather
	// than an error.
	AddMember(ctx context.Context, groupID, userID string) (AddMemberResult, error)

	// GetGroup retrieves a group by ID.
	// Returns ErrGroupNotFound if no such group exists.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListMembers returns all memberships for a group, oldest first.
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)

	// Close releases any resources held by the store.
	Close() error
}
