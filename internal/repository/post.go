package repository

import (
	"context"
	"strings"

	"overthinkistan/internal/models"

	"gorm.io/gorm"
)

// PostRepository adds reactions and feed queries to the post lifecycle.
type PostRepository interface {
	RecordRepository[models.Post]
	Like(ctx context.Context, refID string) (*models.Post, error)
	Dislike(ctx context.Context, refID string) (*models.Post, error)
	ListByAuthor(ctx context.Context, userRefID string) ([]*models.Post, error)
	ListByCategory(ctx context.Context, categoryRefID string) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Post, error)
}

type postRepository struct {
	*recordRepository[models.Post, *models.Post]
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{
		recordRepository: newRecordRepository[models.Post, *models.Post](db, "Post", "created_at DESC, id DESC"),
	}
}

func (r *postRepository) Like(ctx context.Context, refID string) (_ *models.Post, err error) {
	ctx, end := r.trace(ctx, "Like")
	defer func() { end(err) }()
	return r.updateColumnExpr(ctx, refID, "like_count", gorm.Expr("like_count + ?", 1))
}

func (r *postRepository) Dislike(ctx context.Context, refID string) (_ *models.Post, err error) {
	ctx, end := r.trace(ctx, "Dislike")
	defer func() { end(err) }()
	return r.updateColumnExpr(ctx, refID, "dislike_count", gorm.Expr("dislike_count + ?", 1))
}

func (r *postRepository) ListByAuthor(ctx context.Context, userRefID string) ([]*models.Post, error) {
	return r.ListActive(ctx, Filter{"created_by": userRefID})
}

// escapeLike escapes the LIKE wildcards in s for use with ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListByCategory matches the quoted refId inside the JSON text column.
func (r *postRepository) ListByCategory(ctx context.Context, categoryRefID string) (_ []*models.Post, err error) {
	ctx, end := r.trace(ctx, "ListByCategory")
	defer func() { end(err) }()

	pattern := `%"` + escapeLike(categoryRefID) + `"%`
	var candidates []*models.Post
	err = r.active(ctx, readDB(r.db)).
		Where(`category_ref_ids LIKE ? ESCAPE '\'`, pattern).
		Order(r.listOrder).
		Find(&candidates).Error
	if err != nil {
		return nil, translateError(r.kind, err)
	}

	posts := make([]*models.Post, 0, len(candidates))
	for _, p := range candidates {
		if p.HasCategory(categoryRefID) {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// Search returns ACTIVE posts whose content contains query, newest first.
func (r *postRepository) Search(ctx context.Context, query string, limit int) (_ []*models.Post, err error) {
	ctx, end := r.trace(ctx, "Search")
	defer func() { end(err) }()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts := make([]*models.Post, 0)
	err = r.active(ctx, readDB(r.db)).
		Where(`LOWER(content) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(query))+"%").
		Order(r.listOrder).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, translateError(r.kind, err)
	}
	return posts, nil
}
