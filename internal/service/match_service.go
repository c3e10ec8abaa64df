// Package service implements the group-matching logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/linkup-app/linkup/internal/metrics"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/storage"
)

const (
	// DefaultMaxSize is the capacity assigned to new groups when the
	// request does not carry a usable max_size.
	DefaultMaxSize = 5

	// candidateWindow bounds how many open groups are considered per
	// join request. First fit within this window; requests beyond it
	// create a new group rather than scanning the whole table.
	candidateWindow = 10
)

// ErrMissingActivityType is returned when a join request has no
// activity type. The request has no side effects in that case.
var ErrMissingActivityType = errors.New("missing activity_type")

// JoinRequest carries the caller-supplied matching inputs.
type JoinRequest struct {
	// ActivityType is required and selects which groups are candidates.
	ActivityType string

	// Params are arbitrary matching criteria, stored verbatim on the
	// group if this request ends up creating one.
	Params map[string]any

	// MaxSize is the capacity for a newly created group. Zero or
	// negative values fall back to DefaultMaxSize. It never affects
	// existing groups, which are checked against their own stored
	// capacity.
	MaxSize int
}

// MatchService resolves join requests to a group, creating one when no
// open group has spare capacity.
type MatchService struct {
	store storage.Store
}

// NewMatchService creates a new MatchService with the given storage backend.
func NewMatchService(store storage.Store) *MatchService {
	return &MatchService{store: store}
}

// JoinOrCreate resolves userID to a group for the requested activity
// and records their membership, idempotently. It returns the chosen
// group's ID and whether a new group was created.
//
// Candidates are the first candidateWindow open groups for the activity
// type, each checked in order against its own stored capacity; the
// first one with room wins. The capacity check and the membership
// insert are deliberately not wrapped in a transaction: two concurrent
// requests can both pass the check and briefly push a group past its
// max size. The composite primary key on memberships is the only
// store-level guarantee this flow relies on, and it is what makes
// repeating a request safe.
func (s *MatchService) JoinOrCreate(ctx context.Context, userID string, req JoinRequest) (string, bool, error) {
	if req.ActivityType == "" {
		return "", false, ErrMissingActivityType
	}

	candidates, err := s.store.FindOpenGroups(ctx, req.ActivityType, candidateWindow)
	if err != nil {
		return "", false, fmt.Errorf("failed to find open groups: %w", err)
	}

	// First fit: take the first candidate with spare capacity.
	var chosenID string
	for _, g := range candidates {
		count, err := s.store.CountMembers(ctx, g.ID)
		if err != nil {
			return "", false, fmt.Errorf("failed to count members of group %s: %w", g.ID, err)
		}
		if count < g.MaxSize {
			chosenID = g.ID
			break
		}
	}

	created := false
	if chosenID == "" {
		maxSize := req.MaxSize
		if maxSize <= 0 {
			maxSize = DefaultMaxSize
		}

		group := &models.Group{
			Name:         groupName(req.ActivityType),
			ActivityType: req.ActivityType,
			Params:       req.Params,
			CreatedBy:    userID,
			MaxSize:      maxSize,
			IsOpen:       true,
		}
		if err := s.store.CreateGroup(ctx, group); err != nil {
			return "", false, fmt.Errorf("failed to create group: %w", err)
		}
		chosenID = group.ID
		created = true
		slog.Info("Group created", "group_id", group.ID, "activity_type", req.ActivityType, "created_by", userID)
	}

	// A duplicate membership means the caller already belongs to the
	// chosen group; the join still succeeds. Other failures propagate,
	// possibly leaving a freshly created group without its creator —
	// the caller retries by reissuing the whole request.
	result, err := s.store.AddMember(ctx, chosenID, userID)
	if err != nil {
		return "", false, fmt.Errorf("failed to add member: %w", err)
	}

	outcome := "matched"
	if created {
		outcome = "created"
	}
	metrics.JoinOutcomes.WithLabelValues(outcome).Inc()

	slog.Info("Join resolved",
		"group_id", chosenID,
		"user_id", userID,
		"activity_type", req.ActivityType,
		"created", created,
		"already_member", result == storage.MemberAlreadyExists,
	)

	return chosenID, created, nil
}

// groupName derives the display name for a new group from its activity
// type: "hiking" becomes "Hiking Group".
func groupName(activityType string) string {
	r, size := utf8.DecodeRuneInString(activityType)
	return string(unicode.ToUpper(r)) + activityType[size:] + " Group"
}
