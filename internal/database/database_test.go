package database

import (
	"testing"
	"time"

	"overthinkistan/internal/config"
	"overthinkistan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		Env:                      "test",
		DBDriver:                 "sqlite",
		SQLitePath:               ":memory:",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := sqliteConfig()
	cfg.SQLitePath = "pool.db"
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_InMemorySQLiteUsesSingleConnection(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, configurePool(db, sqliteConfig()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnectWithOptions_SQLiteAppliesSchema(t *testing.T) {
	db, err := ConnectWithOptions(sqliteConfig(), ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.Same(t, db, GetReadDB())

	// Translated driver errors surface as gorm sentinels.
	user := models.User{Name: "Ann", Surname: "Lee", Username: "annlee", Email: "ann@example.com", Password: "x"}
	user.Init("")
	require.NoError(t, db.Create(&user).Error)
	dup := models.User{Name: "Ann", Surname: "Lee", Username: "annlee", Email: "ann2@example.com", Password: "x"}
	dup.Init("")
	err = db.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestNewGormLogger_Defaults(t *testing.T) {
	l := newGormLogger()
	assert.Equal(t, 200*time.Millisecond, l.Config.SlowThreshold)
	assert.True(t, l.Config.IgnoreRecordNotFoundError)
}
