package service

import (
	"context"
	"strings"

	"overthinkistan/internal/models"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/validation"
)

type CategoryService struct {
	*RecordService[models.Category]
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{
		RecordService: NewRecordService[models.Category](categories, "CategoryService"),
		categories:    categories,
	}
}

func (s *CategoryService) Create(ctx context.Context, category *models.Category, actorRefID string) (*models.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if err := validation.ValidateCategoryName(category.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return s.RecordService.Create(ctx, category, actorRefID)
}

func (s *CategoryService) UpdateByRefID(ctx context.Context, refID string, changes repository.Changes, actorRefID string) (*models.Category, error) {
	if v, ok := changes["name"]; ok {
		name, _ := v.(string)
		name = strings.TrimSpace(name)
		if err := validation.ValidateCategoryName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		changes["name"] = name
	}
	return s.RecordService.UpdateByRefID(ctx, refID, changes, actorRefID)
}

// GetByName returns the ACTIVE category with exactly name.
func (s *CategoryService) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return s.categories.GetByName(ctx, strings.TrimSpace(name))
}
