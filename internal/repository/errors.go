package repository

import (
	"errors"
	"fmt"
	"strings"

	"overthinkistan/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// translateError converts driver errors into AppErrors. AppErrors pass through.
func translateError(kind string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isUniqueViolation(err) {
		return models.NewConflictError(fmt.Sprintf("%s already exists", kind), err)
	}
	return models.NewInternalError(err)
}
