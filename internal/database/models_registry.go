package database

import "overthinkistan/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Post{},
	}
}
