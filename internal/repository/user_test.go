package repository

import (
	"context"
	"testing"

	"overthinkistan/internal/cache"
	"overthinkistan/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func TestUserRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser("jane_doe", "jane@example.com")
	require.NoError(t, repo.Create(ctx, user, ""))

	byEmail, err := repo.GetByEmail(ctx, "  JANE@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.RefID, byEmail.RefID)
	assert.Equal(t, "hash", byEmail.Password)

	byName, err := repo.GetByUsername(ctx, "jane_doe")
	require.NoError(t, err)
	assert.Equal(t, user.RefID, byName.RefID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = repo.SoftDeleteByRefID(ctx, user.RefID, user.RefID)
	require.NoError(t, err)
	_, err = repo.GetByEmail(ctx, "jane@example.com")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_ExistsByEmailOrUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser("taken", "taken@example.com")
	require.NoError(t, repo.Create(ctx, user, ""))

	tests := []struct {
		name          string
		email         string
		username      string
		emailTaken    bool
		usernameTaken bool
	}{
		{"free", "free@example.com", "free_name", false, false},
		{"email taken", "TAKEN@example.com", "free_name", true, false},
		{"username taken", "free@example.com", "taken", false, true},
		{"both taken", "taken@example.com", "taken", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailTaken, usernameTaken, err := repo.ExistsByEmailOrUsername(ctx, tt.email, tt.username)
			require.NoError(t, err)
			assert.Equal(t, tt.emailTaken, emailTaken)
			assert.Equal(t, tt.usernameTaken, usernameTaken)
		})
	}

	// Deleted users still hold their unique values.
	_, err := repo.SoftDeleteByRefID(ctx, user.RefID, "")
	require.NoError(t, err)
	emailTaken, usernameTaken, err := repo.ExistsByEmailOrUsername(ctx, "taken@example.com", "taken")
	require.NoError(t, err)
	assert.True(t, emailTaken)
	assert.True(t, usernameTaken)
}

func TestUserRepository_DuplicateEmailIsConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestUser("first", "same@example.com"), ""))
	err := repo.Create(ctx, newTestUser("second", "same@example.com"), "")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, 409, models.StatusFor(err))
}

func TestUserRepository_IsActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser("active_one", "active@example.com")
	require.NoError(t, repo.Create(ctx, user, ""))

	active, err := repo.IsActive(ctx, user.RefID)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = repo.IsActive(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, active)

	_, err = repo.SoftDeleteByRefID(ctx, user.RefID, "")
	require.NoError(t, err)
	active, err = repo.IsActive(ctx, user.RefID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestUserRepository_AdjustPostCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser("counter", "counter@example.com")
	require.NoError(t, repo.Create(ctx, user, ""))

	require.NoError(t, repo.AdjustPostCount(ctx, user.RefID, 1))
	require.NoError(t, repo.AdjustPostCount(ctx, user.RefID, 1))
	got, err := repo.GetByRefID(ctx, user.RefID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PostCount)

	require.NoError(t, repo.AdjustPostCount(ctx, user.RefID, -5))
	got, err = repo.GetByRefID(ctx, user.RefID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.PostCount)

	assert.NoError(t, repo.AdjustPostCount(ctx, "", 1))
	err = repo.AdjustPostCount(ctx, "ghost", 1)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_ReconcilePostCounts(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	alice := newTestUser("alice", "alice@example.com")
	bob := newTestUser("bobby", "bob@example.com")
	carol := newTestUser("carol", "carol@example.com")
	for _, u := range []*models.User{alice, bob, carol} {
		require.NoError(t, users.Create(ctx, u, ""))
	}

	require.NoError(t, posts.Create(ctx, &models.Post{Content: "one"}, alice.RefID))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "two"}, alice.RefID))
	gone := &models.Post{Content: "three"}
	require.NoError(t, posts.Create(ctx, gone, bob.RefID))
	_, err := posts.SoftDeleteByRefID(ctx, gone.RefID, bob.RefID)
	require.NoError(t, err)

	// bob is stale at 1; carol is already correct at 0.
	require.NoError(t, users.AdjustPostCount(ctx, bob.RefID, 1))

	fixed, err := users.ReconcilePostCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fixed)

	for refID, want := range map[string]int{alice.RefID: 2, bob.RefID: 0, carol.RefID: 0} {
		got, err := users.GetByRefID(ctx, refID)
		require.NoError(t, err)
		assert.Equal(t, want, got.PostCount, refID)
	}

	fixed, err = users.ReconcilePostCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fixed)
}

func TestUserRepository_CacheInvalidation(t *testing.T) {
	db := setupTestDB(t)
	mr := setupCache(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser("cached", "cached@example.com")
	require.NoError(t, repo.Create(ctx, user, ""))

	_, err := repo.GetByRefID(ctx, user.RefID)
	require.NoError(t, err)
	key := cache.RecordKey("user", user.RefID)
	assert.True(t, mr.Exists(key))

	updated, err := repo.UpdateByRefID(ctx, user.RefID, Changes{"biography": "fresh"}, user.RefID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", updated.Biography)
	assert.False(t, mr.Exists(key))

	got, err := repo.GetByRefID(ctx, user.RefID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Biography)

	_, err = repo.SoftDeleteByRefID(ctx, user.RefID, "")
	require.NoError(t, err)
	_, err = repo.GetByRefID(ctx, user.RefID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestCategoryRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	comedy := &models.Category{Name: "Comedy"}
	tech := &models.Category{Name: "Tech"}
	require.NoError(t, repo.Create(ctx, comedy, ""))
	require.NoError(t, repo.Create(ctx, tech, ""))

	got, err := repo.GetByName(ctx, "Comedy")
	require.NoError(t, err)
	assert.Equal(t, comedy.RefID, got.RefID)

	_, err = repo.GetByName(ctx, "Drama")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = repo.SoftDeleteByRefID(ctx, tech.RefID, "")
	require.NoError(t, err)

	list, err := repo.ListByRefIDs(ctx, []string{comedy.RefID, tech.RefID, "dangling"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, comedy.RefID, list[0].RefID)

	empty, err := repo.ListByRefIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
