package models

// Group represents an activity group that users are matched into.
// Groups are created lazily the first time a join request for an
// activity type finds no open group with spare capacity.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name, derived from the activity type at
	// creation time (e.g. "Hiking Group").
	Name string

	// ActivityType tags the kind of activity (e.g. "hiking", "food").
	ActivityType string

	// Params holds the matching criteria supplied by the creator
	// (location, date, ...). Stored verbatim, never interpreted by the
	// matching logic, and immutable after creation.
	Params map[string]any

	// CreatedBy is the ID of the user whose request created the group.
	CreatedBy string

	// MaxSize is the capacity ceiling for the group. The current size
	// is always derived from membership rows, never cached here.
	MaxSize int

	// IsOpen reports whether the group still accepts new members.
	// Only open groups are eligible for matching.
	IsOpen bool

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// GroupMember asserts that a user belongs to a group. The (GroupID,
// UserID) pair is unique, which makes joining idempotent.
type GroupMember struct {
	GroupID string
	UserID  string

	// JoinedAt is the Unix timestamp when the membership was created.
	JoinedAt int64
}
