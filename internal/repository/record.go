package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"overthinkistan/internal/cache"
	"overthinkistan/internal/models"
	"overthinkistan/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter is an equality filter keyed by column name.
type Filter map[string]any

// Changes is a partial update keyed by column name.
type Changes map[string]any

// Entity is satisfied by pointers to models that embed models.Record.
type Entity[T any] interface {
	*T
	Lifecycle() *models.Record
}

// RecordRepository is the lifecycle every stored kind shares. Reads only see
// ACTIVE records; soft-deleted rows stay in storage until hard deleted.
type RecordRepository[T any] interface {
	ListActive(ctx context.Context, filter Filter) ([]*T, error)
	GetByRefID(ctx context.Context, refID string) (*T, error)
	Create(ctx context.Context, entity *T, actorRefID string) error
	UpdateByRefID(ctx context.Context, refID string, changes Changes, actorRefID string) (*T, error)
	SoftDeleteByRefID(ctx context.Context, refID, actorRefID string) (*T, error)
	HardDeleteByRefID(ctx context.Context, refID string) (bool, error)
}

// lifecycleColumns may only be written by the repository itself.
var lifecycleColumns = map[string]struct{}{
	"id":         {},
	"ref_id":     {},
	"status":     {},
	"created_at": {},
	"created_by": {},
	"updated_at": {},
	"updated_by": {},
	"deleted_at": {},
	"deleted_by": {},
}

var columnName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type recordRepository[T any, P Entity[T]] struct {
	db        *gorm.DB
	kind      string
	cacheKind string
	listOrder string
}

// NewRecordRepository returns the generic lifecycle repository for T.
// kind names the entity in errors, e.g. "Post".
func NewRecordRepository[T any, P Entity[T]](db *gorm.DB, kind string) RecordRepository[T] {
	return newRecordRepository[T, P](db, kind, "created_at DESC, id DESC")
}

func newRecordRepository[T any, P Entity[T]](db *gorm.DB, kind, listOrder string) *recordRepository[T, P] {
	return &recordRepository[T, P]{
		db:        db,
		kind:      kind,
		cacheKind: strings.ToLower(kind),
		listOrder: listOrder,
	}
}

func (r *recordRepository[T, P]) table() string {
	stmt := &gorm.Statement{DB: r.db}
	if err := stmt.Parse(new(T)); err != nil {
		return r.cacheKind
	}
	return stmt.Schema.Table
}

func (r *recordRepository[T, P]) trace(ctx context.Context, method string) (context.Context, func(error)) {
	table := r.table()
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), method, table)
	done := observability.TrackQuery(method, table)
	return ctx, func(err error) {
		done()
		observability.EndSpan(span, err)
	}
}

func (r *recordRepository[T, P]) active(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).Model(new(T)).Where("status = ?", models.StatusActive)
}

func (r *recordRepository[T, P]) notFound(refID string) error {
	return models.NewNotFoundError(r.kind, refID)
}

func (r *recordRepository[T, P]) invalidate(ctx context.Context, refID string) {
	cache.InvalidateRecord(ctx, r.cacheKind, refID)
}

func applyFilter(q *gorm.DB, filter Filter) (*gorm.DB, error) {
	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if !columnName.MatchString(col) {
			return nil, models.NewValidationError(fmt.Sprintf("invalid filter column %q", col))
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: filter[col]})
	}
	return q, nil
}

func (r *recordRepository[T, P]) ListActive(ctx context.Context, filter Filter) (out []*T, err error) {
	ctx, end := r.trace(ctx, "ListActive")
	defer func() { end(err) }()

	q, err := applyFilter(r.active(ctx, readDB(r.db)), filter)
	if err != nil {
		return nil, err
	}
	out = make([]*T, 0)
	if err := q.Order(r.listOrder).Find(&out).Error; err != nil {
		return nil, translateError(r.kind, err)
	}
	return out, nil
}

func (r *recordRepository[T, P]) GetByRefID(ctx context.Context, refID string) (_ *T, err error) {
	ctx, end := r.trace(ctx, "GetByRefID")
	defer func() { end(err) }()

	entity := new(T)
	key := cache.RecordKey(r.cacheKind, refID)
	// Fills read the primary; a lagging replica would cache a row that was just invalidated.
	err = cache.Aside(ctx, key, entity, cache.TTLFor(r.cacheKind), func() error {
		return r.load(ctx, r.db, refID, entity)
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// load reads one ACTIVE record into dest.
func (r *recordRepository[T, P]) load(ctx context.Context, db *gorm.DB, refID string, dest *T) error {
	err := r.active(ctx, db).Where("ref_id = ?", refID).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.notFound(refID)
	}
	return translateError(r.kind, err)
}

func (r *recordRepository[T, P]) Create(ctx context.Context, entity *T, actorRefID string) (err error) {
	ctx, end := r.trace(ctx, "Create")
	defer func() { end(err) }()

	rec := P(entity).Lifecycle()
	rec.ID = 0
	rec.Init(actorRefID)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return translateError(r.kind, err)
	}
	r.invalidate(ctx, rec.RefID)
	observability.RecordMutations.WithLabelValues(r.cacheKind, "create").Inc()
	return nil
}

func sanitizeChanges(changes Changes) map[string]any {
	clean := make(map[string]any, len(changes)+2)
	for col, v := range changes {
		if _, reserved := lifecycleColumns[col]; reserved {
			continue
		}
		clean[col] = v
	}
	return clean
}

func actorValue(actorRefID string) any {
	if actorRefID == "" {
		return nil
	}
	return actorRefID
}

func (r *recordRepository[T, P]) UpdateByRefID(ctx context.Context, refID string, changes Changes, actorRefID string) (_ *T, err error) {
	ctx, end := r.trace(ctx, "UpdateByRefID")
	defer func() { end(err) }()

	clean := sanitizeChanges(changes)
	for col := range clean {
		if !columnName.MatchString(col) {
			return nil, models.NewValidationError(fmt.Sprintf("invalid update column %q", col))
		}
	}
	clean["updated_at"] = time.Now().UTC()
	clean["updated_by"] = actorValue(actorRefID)

	res := r.active(ctx, r.db).Where("ref_id = ?", refID).Updates(clean)
	if res.Error != nil {
		return nil, translateError(r.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.notFound(refID)
	}
	r.invalidate(ctx, refID)
	observability.RecordMutations.WithLabelValues(r.cacheKind, "update").Inc()

	entity := new(T)
	if err := r.load(ctx, r.db, refID, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// updateColumnExpr applies an expression update to one ACTIVE record
// without touching the audit stamps and returns the reloaded record.
func (r *recordRepository[T, P]) updateColumnExpr(ctx context.Context, refID, column string, expr clause.Expr) (*T, error) {
	res := r.active(ctx, r.db).Where("ref_id = ?", refID).UpdateColumn(column, expr)
	if res.Error != nil {
		return nil, translateError(r.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.notFound(refID)
	}
	r.invalidate(ctx, refID)

	entity := new(T)
	if err := r.load(ctx, r.db, refID, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *recordRepository[T, P]) SoftDeleteByRefID(ctx context.Context, refID, actorRefID string) (_ *T, err error) {
	ctx, end := r.trace(ctx, "SoftDeleteByRefID")
	defer func() { end(err) }()

	res := r.active(ctx, r.db).Where("ref_id = ?", refID).Updates(map[string]any{
		"status":     models.StatusDeleted,
		"deleted_at": time.Now().UTC(),
		"deleted_by": actorValue(actorRefID),
	})
	if res.Error != nil {
		return nil, translateError(r.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.notFound(refID)
	}
	r.invalidate(ctx, refID)
	observability.RecordMutations.WithLabelValues(r.cacheKind, "soft_delete").Inc()

	entity := new(T)
	if err := r.db.WithContext(ctx).Where("ref_id = ?", refID).First(entity).Error; err != nil {
		return nil, translateError(r.kind, err)
	}
	return entity, nil
}

func (r *recordRepository[T, P]) HardDeleteByRefID(ctx context.Context, refID string) (_ bool, err error) {
	ctx, end := r.trace(ctx, "HardDeleteByRefID")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Where("ref_id = ?", refID).Delete(new(T))
	if res.Error != nil {
		return false, translateError(r.kind, res.Error)
	}
	r.invalidate(ctx, refID)
	if res.RowsAffected > 0 {
		observability.RecordMutations.WithLabelValues(r.cacheKind, "hard_delete").Inc()
	}
	return res.RowsAffected > 0, nil
}

// listActiveByRefIDs loads the ACTIVE records among refIDs in one query.
// Unknown or deleted refIDs are simply absent from the result.
func (r *recordRepository[T, P]) listActiveByRefIDs(ctx context.Context, refIDs []string) ([]*T, error) {
	out := make([]*T, 0, len(refIDs))
	if len(refIDs) == 0 {
		return out, nil
	}
	if err := r.active(ctx, readDB(r.db)).Where("ref_id IN ?", refIDs).Find(&out).Error; err != nil {
		return nil, translateError(r.kind, err)
	}
	return out, nil
}
