package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"overthinkistan/internal/auth"
	"overthinkistan/internal/models"
	"overthinkistan/internal/notifications"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	hashCost = bcrypt.MinCost
}

// recordRepoStub is a stub for repository.RecordRepository. Unset functions
// return zero values.
type recordRepoStub[T any] struct {
	listActiveFn func(context.Context, repository.Filter) ([]*T, error)
	getByRefIDFn func(context.Context, string) (*T, error)
	createFn     func(context.Context, *T, string) error
	updateFn     func(context.Context, string, repository.Changes, string) (*T, error)
	softDeleteFn func(context.Context, string, string) (*T, error)
	hardDeleteFn func(context.Context, string) (bool, error)
}

func (s *recordRepoStub[T]) ListActive(ctx context.Context, filter repository.Filter) ([]*T, error) {
	if s.listActiveFn == nil {
		return []*T{}, nil
	}
	return s.listActiveFn(ctx, filter)
}
func (s *recordRepoStub[T]) GetByRefID(ctx context.Context, refID string) (*T, error) {
	if s.getByRefIDFn == nil {
		return new(T), nil
	}
	return s.getByRefIDFn(ctx, refID)
}
func (s *recordRepoStub[T]) Create(ctx context.Context, entity *T, actor string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, entity, actor)
}
func (s *recordRepoStub[T]) UpdateByRefID(ctx context.Context, refID string, changes repository.Changes, actor string) (*T, error) {
	if s.updateFn == nil {
		return new(T), nil
	}
	return s.updateFn(ctx, refID, changes, actor)
}
func (s *recordRepoStub[T]) SoftDeleteByRefID(ctx context.Context, refID, actor string) (*T, error) {
	if s.softDeleteFn == nil {
		return new(T), nil
	}
	return s.softDeleteFn(ctx, refID, actor)
}
func (s *recordRepoStub[T]) HardDeleteByRefID(ctx context.Context, refID string) (bool, error) {
	if s.hardDeleteFn == nil {
		return false, nil
	}
	return s.hardDeleteFn(ctx, refID)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	recordRepoStub[models.User]
	getByEmailFn   func(context.Context, string) (*models.User, error)
	existsFn       func(context.Context, string, string) (bool, bool, error)
	listByRefIDsFn func(context.Context, []string) ([]*models.User, error)
	isActiveFn     func(context.Context, string) (bool, error)
	adjustFn       func(context.Context, string, int) error
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return nil, models.NewNotFoundError("User", username)
}
func (s *userRepoStub) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, bool, error) {
	if s.existsFn == nil {
		return false, false, nil
	}
	return s.existsFn(ctx, email, username)
}
func (s *userRepoStub) ListByRefIDs(ctx context.Context, refIDs []string) ([]*models.User, error) {
	if s.listByRefIDsFn == nil {
		return []*models.User{}, nil
	}
	return s.listByRefIDsFn(ctx, refIDs)
}
func (s *userRepoStub) IsActive(ctx context.Context, refID string) (bool, error) {
	if s.isActiveFn == nil {
		return true, nil
	}
	return s.isActiveFn(ctx, refID)
}
func (s *userRepoStub) AdjustPostCount(ctx context.Context, refID string, delta int) error {
	if s.adjustFn == nil {
		return nil
	}
	return s.adjustFn(ctx, refID, delta)
}
func (s *userRepoStub) ReconcilePostCounts(context.Context) (int64, error) {
	return 0, nil
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	recordRepoStub[models.Post]
	likeFn    func(context.Context, string) (*models.Post, error)
	dislikeFn func(context.Context, string) (*models.Post, error)
}

func (s *postRepoStub) Like(ctx context.Context, refID string) (*models.Post, error) {
	return s.likeFn(ctx, refID)
}
func (s *postRepoStub) Dislike(ctx context.Context, refID string) (*models.Post, error) {
	return s.dislikeFn(ctx, refID)
}
func (s *postRepoStub) ListByAuthor(context.Context, string) ([]*models.Post, error) {
	return []*models.Post{}, nil
}
func (s *postRepoStub) ListByCategory(context.Context, string) ([]*models.Post, error) {
	return []*models.Post{}, nil
}
func (s *postRepoStub) Search(context.Context, string, int) ([]*models.Post, error) {
	return []*models.Post{}, nil
}

// eventRecorder captures published post events.
type eventRecorder struct {
	mu     sync.Mutex
	events []notifications.PostEvent
	err    error
}

func (r *eventRecorder) PublishPost(_ context.Context, ev notifications.PostEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// uploaderStub returns a fixed result for every upload.
type uploaderStub struct {
	result  *storage.Result
	err     error
	purpose storage.Purpose
}

func (u *uploaderStub) Upload(_ context.Context, purpose storage.Purpose, _ string, _ []byte) (*storage.Result, error) {
	u.purpose = purpose
	return u.result, u.err
}

// revokerStub records revocations.
type revokerStub struct {
	jti string
	ttl time.Duration
	err error
}

func (r *revokerStub) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.jti, r.ttl = jti, ttl
	return r.err
}

const testSecret = "service-test-secret-0123456789abcdef0123"

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	return issuer
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
