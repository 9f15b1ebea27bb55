package server

import (
	"context"

	"overthinkistan/internal/middleware"
	"overthinkistan/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// recordService is the lifecycle a resource serves over HTTP. The generic
// service.RecordService and every domain service satisfy it.
type recordService[T any] interface {
	ListActive(ctx context.Context, filter repository.Filter) ([]*T, error)
	GetByRefID(ctx context.Context, refID string) (*T, error)
	Create(ctx context.Context, entity *T, actorRefID string) (*T, error)
	UpdateByRefID(ctx context.Context, refID string, changes repository.Changes, actorRefID string) (*T, error)
	SoftDeleteByRefID(ctx context.Context, refID, actorRefID string) (*T, error)
	HardDeleteByRefID(ctx context.Context, refID string) (bool, error)
}

// resource exposes the lifecycle routes of one entity kind. The decoders turn
// request bodies into an entity or a column change set; lifecycle columns are
// never read from the body.
type resource[T any] struct {
	svc          recordService[T]
	auth         *middleware.Authenticator
	decodeCreate func(c *fiber.Ctx) (*T, error)
	decodeUpdate func(c *fiber.Ctx) (repository.Changes, error)
}

// resourceGuards are the handlers placed in front of the write routes.
type resourceGuards struct {
	create []fiber.Handler
	mutate []fiber.Handler
	hard   []fiber.Handler
}

func chain(h fiber.Handler, guards []fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, h)
}

func (r *resource[T]) mount(g fiber.Router, guards resourceGuards) {
	g.Get("/", r.list)
	g.Get("/ref/:refId", r.get)
	g.Post("/", chain(r.create, guards.create)...)
	g.Put("/ref/:refId", chain(r.update, guards.mutate)...)
	g.Delete("/ref/:refId/hard", chain(r.hardDelete, guards.hard)...)
	g.Delete("/ref/:refId", chain(r.softDelete, guards.mutate)...)
}

func (r *resource[T]) list(c *fiber.Ctx) error {
	items, err := r.svc.ListActive(c.UserContext(), nil)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(items)
}

func (r *resource[T]) get(c *fiber.Ctx) error {
	item, err := r.svc.GetByRefID(c.UserContext(), c.Params("refId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(item)
}

func (r *resource[T]) create(c *fiber.Ctx) error {
	entity, err := r.decodeCreate(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	created, err := r.svc.Create(c.UserContext(), entity, r.auth.ActorRefID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (r *resource[T]) update(c *fiber.Ctx) error {
	changes, err := r.decodeUpdate(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	updated, err := r.svc.UpdateByRefID(c.UserContext(), c.Params("refId"), changes, r.auth.ActorRefID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(updated)
}

func (r *resource[T]) softDelete(c *fiber.Ctx) error {
	deleted, err := r.svc.SoftDeleteByRefID(c.UserContext(), c.Params("refId"), r.auth.ActorRefID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(deleted)
}

func (r *resource[T]) hardDelete(c *fiber.Ctx) error {
	deleted, err := r.svc.HardDeleteByRefID(c.UserContext(), c.Params("refId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
