// Package service holds the business rules between the HTTP handlers and the repositories.
package service

import (
	"context"

	"overthinkistan/internal/observability"
	"overthinkistan/internal/repository"
)

// RecordService exposes the shared record lifecycle of one entity kind with
// a span around every call. Domain services embed it and override the
// operations they need to extend.
type RecordService[T any] struct {
	repo repository.RecordRepository[T]
	name string
}

// NewRecordService wraps repo. name labels spans, e.g. "CategoryService".
func NewRecordService[T any](repo repository.RecordRepository[T], name string) *RecordService[T] {
	return &RecordService[T]{repo: repo, name: name}
}

func (s *RecordService[T]) span(ctx context.Context, method string) (context.Context, func(error)) {
	ctx, span := observability.StartServiceSpan(ctx, s.name, method)
	return ctx, func(err error) { observability.EndSpan(span, err) }
}

func (s *RecordService[T]) ListActive(ctx context.Context, filter repository.Filter) (_ []*T, err error) {
	ctx, end := s.span(ctx, "ListActive")
	defer func() { end(err) }()
	return s.repo.ListActive(ctx, filter)
}

func (s *RecordService[T]) GetByRefID(ctx context.Context, refID string) (_ *T, err error) {
	ctx, end := s.span(ctx, "GetByRefID")
	defer func() { end(err) }()
	return s.repo.GetByRefID(ctx, refID)
}

// Create stores entity on behalf of actorRefID ("" for anonymous) and
// returns it with its lifecycle fields populated.
func (s *RecordService[T]) Create(ctx context.Context, entity *T, actorRefID string) (_ *T, err error) {
	ctx, end := s.span(ctx, "Create")
	defer func() { end(err) }()
	if err := s.repo.Create(ctx, entity, actorRefID); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *RecordService[T]) UpdateByRefID(ctx context.Context, refID string, changes repository.Changes, actorRefID string) (_ *T, err error) {
	ctx, end := s.span(ctx, "UpdateByRefID")
	defer func() { end(err) }()
	return s.repo.UpdateByRefID(ctx, refID, changes, actorRefID)
}

func (s *RecordService[T]) SoftDeleteByRefID(ctx context.Context, refID, actorRefID string) (_ *T, err error) {
	ctx, end := s.span(ctx, "SoftDeleteByRefID")
	defer func() { end(err) }()
	return s.repo.SoftDeleteByRefID(ctx, refID, actorRefID)
}

func (s *RecordService[T]) HardDeleteByRefID(ctx context.Context, refID string) (_ bool, err error) {
	ctx, end := s.span(ctx, "HardDeleteByRefID")
	defer func() { end(err) }()
	return s.repo.HardDeleteByRefID(ctx, refID)
}
