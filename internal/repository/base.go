// Package repository implements the data access layer for the application.
package repository

import (
	"overthinkistan/internal/database"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if database.ReadDB != nil {
		return database.ReadDB
	}
	return primary
}
