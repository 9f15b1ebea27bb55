package repository

import (
	"context"
	"errors"

	"overthinkistan/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository adds name and batch lookups to the category lifecycle.
type CategoryRepository interface {
	RecordRepository[models.Category]
	GetByName(ctx context.Context, name string) (*models.Category, error)
	ListByRefIDs(ctx context.Context, refIDs []string) ([]*models.Category, error)
}

type categoryRepository struct {
	*recordRepository[models.Category, *models.Category]
}

// NewCategoryRepository creates a new category repository. Listings follow
// the configured display order.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{
		recordRepository: newRecordRepository[models.Category, *models.Category](db, "Category", "sort_order ASC, name ASC"),
	}
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := r.active(ctx, readDB(r.db)).Where("name = ?", name).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError(r.kind, name)
	}
	if err != nil {
		return nil, translateError(r.kind, err)
	}
	return &category, nil
}

func (r *categoryRepository) ListByRefIDs(ctx context.Context, refIDs []string) ([]*models.Category, error) {
	return r.listActiveByRefIDs(ctx, refIDs)
}
