// Package bootstrap connects the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"overthinkistan/internal/cache"
	"overthinkistan/internal/config"
	"overthinkistan/internal/database"
	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/seed"
	"overthinkistan/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedCategories bool
}

// InitRuntime connects to DB and Redis, ensures the development admin and
// optionally creates the bundled categories.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedCategories {
		fixtures, err := seed.DefaultCategories()
		if err != nil {
			return nil, nil, err
		}
		if _, _, err := seed.NewSeeder(db, seed.Options{}).SeedCategories(ctx, fixtures); err != nil {
			return nil, nil, fmt.Errorf("failed to seed categories: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevAdmin creates the configured admin account in development, or
// promotes the account already holding its email. Other environments are
// left untouched.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		username = "overthink_admin"
	}
	email := models.NormalizeEmail(cfg.DevAdminEmail)
	if email == "" {
		email = "admin@overthinkistan.local"
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	users := repository.NewUserRepository(db)
	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		if _, err := users.UpdateByRefID(ctx, existing.RefID, repository.Changes{"role": models.RoleAdmin}, ""); err != nil {
			return err
		}
		middleware.Logger.Info("development admin promoted", slog.String("email", email))
		return nil
	case !models.IsCode(err, models.CodeNotFound):
		return err
	}

	admin, err := service.NewUserService(users, nil).Create(ctx, &models.User{
		Name:               "Admin",
		Surname:            "User",
		Username:           username,
		Email:              email,
		Password:           cfg.DevAdminPassword,
		Role:               models.RoleAdmin,
		TermsAndConditions: true,
	}, "")
	if err != nil {
		return err
	}
	middleware.Logger.Info("development admin created",
		slog.String("email", email), slog.String("ref_id", admin.RefID))
	return nil
}
