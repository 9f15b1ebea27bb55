package server

import (
	"overthinkistan/internal/models"
	"overthinkistan/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Icon        string `json:"icon"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
	Icon        *string `json:"icon"`
}

func (s *Server) categoryResource() *resource[models.Category] {
	return &resource[models.Category]{
		svc:  s.categoryService,
		auth: s.auth,
		decodeCreate: func(c *fiber.Ctx) (*models.Category, error) {
			var req categoryRequest
			if err := c.BodyParser(&req); err != nil {
				return nil, models.NewValidationError("Invalid request body")
			}
			return &models.Category{
				Name:        req.Name,
				Description: req.Description,
				Order:       req.Order,
				Icon:        req.Icon,
			}, nil
		},
		decodeUpdate: func(c *fiber.Ctx) (repository.Changes, error) {
			var req updateCategoryRequest
			if err := c.BodyParser(&req); err != nil {
				return nil, models.NewValidationError("Invalid request body")
			}
			changes := repository.Changes{}
			setIfPresent(changes, "name", req.Name)
			setIfPresent(changes, "description", req.Description)
			setIfPresent(changes, "sort_order", req.Order)
			setIfPresent(changes, "icon", req.Icon)
			return changes, nil
		},
	}
}
