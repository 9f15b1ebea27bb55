package repository

import (
	"context"
	"sync"
	"testing"

	"overthinkistan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_ConcurrentLikes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Content: "like me"}
	require.NoError(t, repo.Create(ctx, post, ""))

	const likes = 25
	var wg sync.WaitGroup
	errs := make(chan error, likes)
	for i := 0; i < likes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Like(ctx, post.RefID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetByRefID(ctx, post.RefID)
	require.NoError(t, err)
	assert.Equal(t, likes, got.LikeCount)
	assert.Equal(t, 0, got.DislikeCount)
	assert.Nil(t, got.UpdatedAt)
}

func TestPostRepository_Dislike(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Content: "meh"}
	require.NoError(t, repo.Create(ctx, post, ""))

	got, err := repo.Dislike(ctx, post.RefID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DislikeCount)

	_, err = repo.SoftDeleteByRefID(ctx, post.RefID, "")
	require.NoError(t, err)
	_, err = repo.Dislike(ctx, post.RefID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = repo.Like(ctx, post.RefID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_ListByCategory(t *testing.T) {
	db := setupTestDB(t)
	categories := NewCategoryRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	comedy := &models.Category{Name: "Comedy"}
	tech := &models.Category{Name: "Tech"}
	require.NoError(t, categories.Create(ctx, comedy, ""))
	require.NoError(t, categories.Create(ctx, tech, ""))

	joke := &models.Post{Content: "a joke", CategoryRefIDs: models.StringList{comedy.RefID}}
	both := &models.Post{Content: "a joke about computers", CategoryRefIDs: models.StringList{tech.RefID, comedy.RefID}}
	gadget := &models.Post{Content: "a gadget review", CategoryRefIDs: models.StringList{tech.RefID}}
	loose := &models.Post{Content: "uncategorized"}
	removed := &models.Post{Content: "deleted joke", CategoryRefIDs: models.StringList{comedy.RefID}}
	for _, p := range []*models.Post{joke, both, gadget, loose, removed} {
		require.NoError(t, posts.Create(ctx, p, ""))
	}
	_, err := posts.SoftDeleteByRefID(ctx, removed.RefID, "")
	require.NoError(t, err)

	got, err := posts.ListByCategory(ctx, comedy.RefID)
	require.NoError(t, err)
	refs := make([]string, 0, len(got))
	for _, p := range got {
		refs = append(refs, p.RefID)
	}
	assert.ElementsMatch(t, []string{joke.RefID, both.RefID}, refs)

	none, err := posts.ListByCategory(ctx, "no-such-category")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostRepository_ListByCategoryExactMatch(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	require.NoError(t, posts.Create(ctx, &models.Post{Content: "long", CategoryRefIDs: models.StringList{"abcd"}}, ""))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "wild", CategoryRefIDs: models.StringList{"a_c"}}, ""))

	got, err := posts.ListByCategory(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = posts.ListByCategory(ctx, "a_c")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wild", got[0].Content)

	got, err = posts.ListByCategory(ctx, "abd")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostRepository_ListByAuthor(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	require.NoError(t, posts.Create(ctx, &models.Post{Content: "mine"}, "author-1"))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "also mine"}, "author-1"))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "theirs"}, "author-2"))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "nobody's"}, ""))

	got, err := posts.ListByAuthor(ctx, "author-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, "author-1", p.AuthorRefID())
	}
}

func TestPostRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	require.NoError(t, posts.Create(ctx, &models.Post{Content: "Overthinking about Go"}, ""))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "go fish"}, ""))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "100% sure"}, ""))
	require.NoError(t, posts.Create(ctx, &models.Post{Content: "nothing here"}, ""))

	got, err := posts.Search(ctx, "GO", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = posts.Search(ctx, "%", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% sure", got[0].Content)

	got, err = posts.Search(ctx, "o", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPostRepository_UpdateCategories(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Content: "retag me", CategoryRefIDs: models.StringList{"old"}}
	require.NoError(t, posts.Create(ctx, post, ""))

	updated, err := posts.UpdateByRefID(ctx, post.RefID, Changes{
		"category_ref_ids": models.StringList{"new-1", "new-2"},
	}, "editor")
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"new-1", "new-2"}, updated.CategoryRefIDs)

	got, err := posts.ListByCategory(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}
