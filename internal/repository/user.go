package repository

import (
	"context"
	"errors"

	"overthinkistan/internal/models"

	"gorm.io/gorm"
)

// UserRepository adds credential lookups and counter maintenance to the user lifecycle.
type UserRepository interface {
	RecordRepository[models.User]
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	ListByRefIDs(ctx context.Context, refIDs []string) ([]*models.User, error)
	IsActive(ctx context.Context, refID string) (bool, error)
	AdjustPostCount(ctx context.Context, refID string, delta int) error
	ReconcilePostCounts(ctx context.Context) (int64, error)
}

type userRepository struct {
	*recordRepository[models.User, *models.User]
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		recordRepository: newRecordRepository[models.User, *models.User](db, "User", "created_at DESC, id DESC"),
	}
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	err := r.active(ctx, r.db).Where(column+" = ?", value).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError(r.kind, value)
	}
	if err != nil {
		return nil, translateError(r.kind, err)
	}
	return &user, nil
}

// GetByEmail returns the ACTIVE user with the normalized address. It reads
// the primary so a fresh signup can sign in immediately.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", models.NormalizeEmail(email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

// ExistsByEmailOrUsername checks every row, deleted ones included, since the
// unique indexes cover them too.
func (r *userRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, bool, error) {
	var rows []struct {
		Email    string
		Username string
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("email", "username").
		Where("email = ? OR username = ?", models.NormalizeEmail(email), username).
		Find(&rows).Error
	if err != nil {
		return false, false, translateError(r.kind, err)
	}
	var emailTaken, usernameTaken bool
	for _, row := range rows {
		if row.Email == models.NormalizeEmail(email) {
			emailTaken = true
		}
		if row.Username == username {
			usernameTaken = true
		}
	}
	return emailTaken, usernameTaken, nil
}

func (r *userRepository) ListByRefIDs(ctx context.Context, refIDs []string) ([]*models.User, error) {
	return r.listActiveByRefIDs(ctx, refIDs)
}

// IsActive reports whether refID names an ACTIVE user.
func (r *userRepository) IsActive(ctx context.Context, refID string) (bool, error) {
	_, err := r.GetByRefID(ctx, refID)
	if err == nil {
		return true, nil
	}
	if models.IsCode(err, models.CodeNotFound) {
		return false, nil
	}
	return false, err
}

// AdjustPostCount shifts the denormalized post counter, never below zero.
func (r *userRepository) AdjustPostCount(ctx context.Context, refID string, delta int) error {
	if refID == "" || delta == 0 {
		return nil
	}
	_, err := r.updateColumnExpr(ctx, refID, "post_count",
		gorm.Expr("CASE WHEN post_count + ? < 0 THEN 0 ELSE post_count + ? END", delta, delta))
	return err
}

// ReconcilePostCounts recomputes post_count from ACTIVE posts and returns
// how many users had drifted.
func (r *userRepository) ReconcilePostCounts(ctx context.Context) (int64, error) {
	const countActive = `(SELECT COUNT(*) FROM posts WHERE posts.created_by = users.ref_id AND posts.status = 'ACTIVE')`

	var drifted []string
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("post_count <> " + countActive).
		Pluck("ref_id", &drifted).Error
	if err != nil {
		return 0, translateError(r.kind, err)
	}
	if len(drifted) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).Exec(`UPDATE users SET post_count = `+countActive+` WHERE ref_id IN ?`, drifted)
	if res.Error != nil {
		return 0, translateError(r.kind, res.Error)
	}
	for _, refID := range drifted {
		r.invalidate(ctx, refID)
	}
	return res.RowsAffected, nil
}
