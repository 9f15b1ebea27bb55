package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"overthinkistan/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"gorm duplicate", gorm.ErrDuplicatedKey, models.CodeConflict},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, models.CodeConflict},
		{"sqlite message", errors.New("UNIQUE constraint failed: users.email"), models.CodeConflict},
		{"postgres message", errors.New(`duplicate key value violates unique constraint "idx_users_email"`), models.CodeConflict},
		{"other postgres error", &pgconn.PgError{Code: "42P01"}, models.CodeInternal},
		{"generic", errors.New("connection reset"), models.CodeInternal},
		{"app error passes through", models.NewNotFoundError("Post", "x"), models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError("User", tt.err)
			assert.True(t, models.IsCode(got, tt.code), got.Error())
		})
	}
	assert.NoError(t, translateError("User", nil))

	conflict := translateError("User", gorm.ErrDuplicatedKey)
	assert.Contains(t, conflict.Error(), "User already exists")
}

func TestRecordRepository_HardDeleteSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE ref_id = $1`)).
		WithArgs("ref-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE ref_id = $1`)).
		WithArgs("ref-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.HardDeleteByRefID(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.HardDeleteByRefID(context.Background(), "ref-2")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_CreateUniqueViolationOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), newTestUser("dupe", "dupe@example.com"), "")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_ListActiveDatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCategoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE status = $1`)).
		WithArgs("ACTIVE").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ListActive(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.Equal(t, 500, models.StatusFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
