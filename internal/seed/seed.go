package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/notifications"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int
	// Clean removes every user, category and post first.
	Clean bool
	// Categories replaces the bundled fixture when non-nil.
	Categories []CategoryFixture
	// FakerSeed makes runs reproducible; 0 is random.
	FakerSeed int64
}

// Summary counts what a run created.
type Summary struct {
	Categories int
	Users      int
	Posts      int
}

// Seeder writes demo data through the services so lifecycle fields and
// counters are set exactly as the API would set them.
type Seeder struct {
	db         *gorm.DB
	users      *service.UserService
	categories *service.CategoryService
	posts      *service.PostService
	factory    *Factory
	opts       Options
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)

	return &Seeder{
		db:         db,
		users:      service.NewUserService(userRepo, nil),
		categories: service.NewCategoryService(categoryRepo),
		posts:      service.NewPostService(postRepo, userRepo, categoryRepo, notifications.NewNotifier(nil), nil),
		factory:    NewFactory(opts.FakerSeed),
		opts:       opts,
	}
}

// Seed populates the database with demo data
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	return NewSeeder(db, opts).Run(ctx)
}

// Run creates the fixture categories, then NumUsers users and NumPosts posts
// spread across them.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	middleware.Logger.Info("starting database seeding",
		slog.Int("users", s.opts.NumUsers), slog.Int("posts", s.opts.NumPosts))

	if s.opts.Clean {
		if err := s.clearData(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	fixtures := s.opts.Categories
	if fixtures == nil {
		var err error
		if fixtures, err = DefaultCategories(); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	categories, created, err := s.SeedCategories(ctx, fixtures)
	if err != nil {
		return nil, fmt.Errorf("failed to create categories: %w", err)
	}
	summary.Categories = created

	users, err := s.SeedUsers(ctx, s.opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	summary.Users = len(users)

	posts, err := s.SeedPosts(ctx, users, categories, s.opts.NumPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)

	middleware.Logger.Info("database seeding completed",
		slog.Int("categories", summary.Categories),
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts))
	return summary, nil
}

// SeedCategories creates each fixture whose name is not taken by an ACTIVE
// category. It returns every matching category and how many were new.
func (s *Seeder) SeedCategories(ctx context.Context, fixtures []CategoryFixture) ([]*models.Category, int, error) {
	out := make([]*models.Category, 0, len(fixtures))
	created := 0
	for _, f := range fixtures {
		existing, err := s.categories.GetByName(ctx, f.Name)
		if err == nil {
			out = append(out, existing)
			continue
		}
		if !models.IsCode(err, models.CodeNotFound) {
			return nil, created, err
		}

		c, err := s.categories.Create(ctx, f.Model(), "")
		if models.IsCode(err, models.CodeConflict) {
			// a DELETED category still holds the name
			middleware.Logger.Warn("skipping seeded category", slog.String("name", f.Name))
			continue
		}
		if err != nil {
			return nil, created, err
		}
		out = append(out, c)
		created++
	}
	return out, created, nil
}

// SeedUsers creates count fake users. Name collisions with existing rows are
// skipped.
func (s *Seeder) SeedUsers(ctx context.Context, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := s.users.Create(ctx, s.factory.BuildUser(), "")
		if err != nil {
			if models.IsCode(err, models.CodeConflict) {
				middleware.Logger.Warn("skipping seeded user", slog.String("error", err.Error()))
				continue
			}
			return nil, err
		}
		users = append(users, user)

		if (i+1)%100 == 0 {
			middleware.Logger.Info("seeding users", slog.Int("created", i+1))
		}
	}
	return users, nil
}

// SeedPosts creates count posts authored round-robin by users.
func (s *Seeder) SeedPosts(ctx context.Context, users []*models.User, categories []*models.Category, count int) ([]*models.Post, error) {
	if count > 0 && len(users) == 0 {
		return nil, errors.New("posts need at least one user")
	}
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[i%len(users)]
		post, err := s.posts.Create(ctx, s.factory.BuildPost(categories), author.RefID)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)

		if (i+1)%100 == 0 {
			middleware.Logger.Info("seeding posts", slog.Int("created", i+1))
		}
	}
	return posts, nil
}

func (s *Seeder) clearData(ctx context.Context) error {
	middleware.Logger.Info("clearing existing data")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Post{}, &models.Category{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
