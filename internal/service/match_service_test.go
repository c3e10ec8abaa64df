package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/storage"
	"github.com/linkup-app/linkup/internal/storage/sqlite"
)

func setupMatchService(t *testing.T) (*MatchService, storage.Store) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "linkup-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewMatchService(store), store
}

func TestJoinOrCreateValidation(t *testing.T) {
	svc, store := setupMatchService(t)
	ctx := context.Background()

	_, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: ""})
	if !errors.Is(err, ErrMissingActivityType) {
		t.Fatalf("expected ErrMissingActivityType, got %v", err)
	}

	// Rejected requests must leave no rows behind.
	groups, err := store.FindOpenGroups(ctx, "", 10)
	if err != nil {
		t.Fatalf("FindOpenGroups failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups after rejected request, got %d", len(groups))
	}
}

func TestJoinOrCreateNewGroup(t *testing.T) {
	svc, store := setupMatchService(t)
	ctx := context.Background()

	groupID, created, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{
		ActivityType: "hiking",
		Params:       map[string]any{"location": "north ridge"},
	})
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected a new group to be created")
	}
	if groupID == "" {
		t.Fatal("expected non-empty group ID")
	}

	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if group.Name != "Hiking Group" {
		t.Errorf("name: expected 'Hiking Group', got '%s'", group.Name)
	}
	if group.ActivityType != "hiking" {
		t.Errorf("activity type: expected 'hiking', got '%s'", group.ActivityType)
	}
	if group.CreatedBy != "user-1" {
		t.Errorf("created by: expected 'user-1', got '%s'", group.CreatedBy)
	}
	if group.MaxSize != DefaultMaxSize {
		t.Errorf("max size: expected default %d, got %d", DefaultMaxSize, group.MaxSize)
	}
	if !group.IsOpen {
		t.Error("expected new group to be open")
	}
	if group.Params["location"] != "north ridge" {
		t.Errorf("params: expected location 'north ridge', got %v", group.Params["location"])
	}

	count, err := store.CountMembers(ctx, groupID)
	if err != nil {
		t.Fatalf("CountMembers failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected creator to be the only member, got %d", count)
	}
}

func TestJoinOrCreateMatchesExistingGroup(t *testing.T) {
	svc, store := setupMatchService(t)
	ctx := context.Background()

	// One open group at 4/5 capacity.
	group := &models.Group{
		Name:         "Hiking Group",
		ActivityType: "hiking",
		CreatedBy:    "user-1",
		MaxSize:      5,
		IsOpen:       true,
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, userID := range []string{"user-1", "user-2", "user-3", "user-4"} {
		if _, err := store.AddMember(ctx, group.ID, userID); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
	}

	groupID, created, err := svc.JoinOrCreate(ctx, "user-5", JoinRequest{ActivityType: "hiking"})
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	if created {
		t.Error("expected to join the existing group, not create one")
	}
	if groupID != group.ID {
		t.Errorf("expected group %s, got %s", group.ID, groupID)
	}

	count, err := store.CountMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("CountMembers failed: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 members after join, got %d", count)
	}

	groups, err := store.FindOpenGroups(ctx, "hiking", 10)
	if err != nil {
		t.Fatalf("FindOpenGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Errorf("expected no new group, found %d groups", len(groups))
	}
}

func TestJoinOrCreateFullGroupForcesNewGroup(t *testing.T) {
	svc, store := setupMatchService(t)
	ctx := context.Background()

	// One open group already at 5/5.
	full := &models.Group{
		Name:         "Hiking Group",
		ActivityType: "hiking",
		CreatedBy:    "user-1",
		MaxSize:      5,
		IsOpen:       true,
	}
	if err := store.CreateGroup(ctx, full); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, userID := range []string{"user-1", "user-2", "user-3", "user-4", "user-5"} {
		if _, err := store.AddMember(ctx, full.ID, userID); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
	}

	groupID, created, err := svc.JoinOrCreate(ctx, "user-6", JoinRequest{ActivityType: "hiking"})
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected a new group instead of overfilling the full one")
	}
	if groupID == full.ID {
		t.Error("expected a different group than the full one")
	}

	count, err := store.CountMembers(ctx, full.ID)
	if err != nil {
		t.Fatalf("CountMembers failed: %v", err)
	}
	if count != 5 {
		t.Errorf("full group must stay at 5 members, got %d", count)
	}
}

func TestJoinOrCreateIgnoresClosedGroups(t *testing.T) {
	svc, store := setupMatchService(t)
	ctx := context.Background()

	closed := &models.Group{
		Name:         "Hiking Group",
		ActivityType: "hiking",
		CreatedBy:    "user-1",
		MaxSize:      5,
		IsOpen:       false,
	}
	if err := store.CreateGroup(ctx, closed); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	groupID, created, err := svc.JoinOrCreate(ctx, "user-2", JoinRequest{ActivityType: "hiking"})
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected a new group, closed groups are not candidates")
	}
	if groupID == closed.ID {
		t.Error("must not join a closed group")
	}
}

func TestJoinOrCreateIdempotent(t *testing.T) {
	svc, store := setupMatchService(t)
	ctx := context.Background()

	first, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking"})
	if err != nil {
		t.Fatalf("first JoinOrCreate failed: %v", err)
	}

	second, created, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking"})
	if err != nil {
		t.Fatalf("second JoinOrCreate failed: %v", err)
	}
	if created {
		t.Error("repeat request must not create a group")
	}
	if first != second {
		t.Errorf("expected same group both times: %s vs %s", first, second)
	}

	count, err := store.CountMembers(ctx, first)
	if err != nil {
		t.Fatalf("CountMembers failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one membership row, got %d", count)
	}
}

func TestJoinOrCreateFirstFit(t *testing.T) {
	svc, store := setupMatchService(t)
	ctx := context.Background()

	// Two open groups with capacity; first fit takes the first one the
	// store returns, not the emptiest.
	first := &models.Group{
		Name: "Hiking Group", ActivityType: "hiking",
		CreatedBy: "user-1", MaxSize: 5, IsOpen: true,
	}
	if err := store.CreateGroup(ctx, first); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := store.AddMember(ctx, first.ID, "user-1"); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	second := &models.Group{
		Name: "Hiking Group", ActivityType: "hiking",
		CreatedBy: "user-2", MaxSize: 5, IsOpen: true,
	}
	if err := store.CreateGroup(ctx, second); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	candidates, err := store.FindOpenGroups(ctx, "hiking", 10)
	if err != nil {
		t.Fatalf("FindOpenGroups failed: %v", err)
	}

	groupID, _, err := svc.JoinOrCreate(ctx, "user-3", JoinRequest{ActivityType: "hiking"})
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	if groupID != candidates[0].ID {
		t.Errorf("expected first candidate %s, got %s", candidates[0].ID, groupID)
	}
}

func TestJoinOrCreateMaxSize(t *testing.T) {
	t.Run("caller value is used for new groups", func(t *testing.T) {
		svc, store := setupMatchService(t)
		ctx := context.Background()

		groupID, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking", MaxSize: 2})
		if err != nil {
			t.Fatalf("JoinOrCreate failed: %v", err)
		}

		group, err := store.GetGroup(ctx, groupID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if group.MaxSize != 2 {
			t.Errorf("expected max size 2, got %d", group.MaxSize)
		}
	})

	t.Run("non-positive values fall back to the default", func(t *testing.T) {
		svc, store := setupMatchService(t)
		ctx := context.Background()

		for _, maxSize := range []int{0, -3} {
			groupID, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking", MaxSize: maxSize})
			if err != nil {
				t.Fatalf("JoinOrCreate failed for max_size %d: %v", maxSize, err)
			}

			group, err := store.GetGroup(ctx, groupID)
			if err != nil {
				t.Fatalf("GetGroup failed: %v", err)
			}
			if group.MaxSize != DefaultMaxSize {
				t.Errorf("max_size %d: expected fallback to %d, got %d", maxSize, DefaultMaxSize, group.MaxSize)
			}
		}
	})

	t.Run("existing groups are checked against their own capacity", func(t *testing.T) {
		svc, store := setupMatchService(t)
		ctx := context.Background()

		group := &models.Group{
			Name: "Hiking Group", ActivityType: "hiking",
			CreatedBy: "user-1", MaxSize: 2, IsOpen: true,
		}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if _, err := store.AddMember(ctx, group.ID, "user-1"); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		// The caller asks for a large max_size, but the existing
		// group's stored capacity of 2 is what counts.
		groupID, created, err := svc.JoinOrCreate(ctx, "user-2", JoinRequest{ActivityType: "hiking", MaxSize: 50})
		if err != nil {
			t.Fatalf("JoinOrCreate failed: %v", err)
		}
		if created || groupID != group.ID {
			t.Errorf("expected to join existing group %s, got %s (created=%v)", group.ID, groupID, created)
		}

		// Now at 2/2: the next caller gets a fresh group.
		_, created, err = svc.JoinOrCreate(ctx, "user-3", JoinRequest{ActivityType: "hiking"})
		if err != nil {
			t.Fatalf("JoinOrCreate failed: %v", err)
		}
		if !created {
			t.Error("expected a new group once the small group filled up")
		}
	})
}

// fakeStore lets tests inject store failures into specific calls.
type fakeStore struct {
	groups        []models.Group
	memberCounts  map[string]int
	findErr       error
	countErr      error
	createErr     error
	addErr        error
	createdGroups int
}

func (f *fakeStore) FindOpenGroups(ctx context.Context, activityType string, limit int) ([]models.Group, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.groups, nil
}

func (f *fakeStore) CountMembers(ctx context.Context, groupID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.memberCounts[groupID], nil
}

func (f *fakeStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if f.createErr != nil {
		return f.createErr
	}
	group.ID = "fake-group"
	f.createdGroups++
	return nil
}

func (f *fakeStore) AddMember(ctx context.Context, groupID, userID string) (storage.AddMemberResult, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	return storage.MemberAdded, nil
}

func (f *fakeStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return nil, storage.ErrGroupNotFound
}

func (f *fakeStore) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func TestJoinOrCreateStoreFailures(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("store down")

	t.Run("group lookup failure propagates", func(t *testing.T) {
		svc := NewMatchService(&fakeStore{findErr: storeErr})
		_, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking"})
		if !errors.Is(err, storeErr) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("member count failure propagates", func(t *testing.T) {
		svc := NewMatchService(&fakeStore{
			groups:   []models.Group{{ID: "g1", MaxSize: 5}},
			countErr: storeErr,
		})
		_, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking"})
		if !errors.Is(err, storeErr) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("group creation failure propagates", func(t *testing.T) {
		svc := NewMatchService(&fakeStore{createErr: storeErr})
		_, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking"})
		if !errors.Is(err, storeErr) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("membership failure propagates after group creation", func(t *testing.T) {
		// The group survives the failed join: no rollback by design.
		fake := &fakeStore{addErr: storeErr}
		svc := NewMatchService(fake)
		_, _, err := svc.JoinOrCreate(ctx, "user-1", JoinRequest{ActivityType: "hiking"})
		if !errors.Is(err, storeErr) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
		if fake.createdGroups != 1 {
			t.Errorf("expected the created group to remain, got %d creations", fake.createdGroups)
		}
	})
}

func TestGroupName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hiking", "Hiking Group"},
		{"food", "Food Group"},
		{"Hiking", "Hiking Group"},
		{"éclair tasting", "Éclair tasting Group"},
		{"board games", "Board games Group"},
	}
	for _, tc := range cases {
		if got := groupName(tc.in); got != tc.want {
			t.Errorf("groupName(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
