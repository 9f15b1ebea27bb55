// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "overthinkistan/docs" // swagger docs
	"overthinkistan/internal/auth"
	"overthinkistan/internal/cache"
	"overthinkistan/internal/config"
	"overthinkistan/internal/database"
	"overthinkistan/internal/featureflags"
	"overthinkistan/internal/middleware"
	"overthinkistan/internal/models"
	"overthinkistan/internal/notifications"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/service"
	"overthinkistan/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// the notifier and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	shutdownCtx     context.Context
	shutdownFn      context.CancelFunc
	tokens          *auth.TokenIssuer
	auth            *middleware.Authenticator
	notifier        *notifications.Notifier
	feed            *notifications.PostFeed
	hubs            []wireableHub
	featureFlags    *featureflags.Manager
	localStore      *storage.LocalStore
	authService     *service.AuthService
	userService     *service.UserService
	postService     *service.PostService
	categoryService *service.CategoryService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding. A nil Redis client keeps post events in-process
// and disables token revocation.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	store, err := storage.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	uploader := storage.NewUploader(store, storage.UploadOptions{
		MaxBytes:     cfg.UploadMaxBytes,
		MaxDimension: cfg.ImageMaxDimension,
		MaxPixels:    cfg.ImageMaxPixels,
		WebPVariants: cfg.ImageWebPVariants,
	})

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("overthinkistan-api"),
		tokens:         tokens,
		notifier:       notifications.NewNotifier(redisClient),
		feed:           notifications.NewPostFeed(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.hubs = []wireableHub{s.feed}
	if local, ok := store.(*storage.LocalStore); ok {
		s.localStore = local
	}

	s.userService = service.NewUserService(userRepo, uploader)
	s.categoryService = service.NewCategoryService(categoryRepo)
	s.postService = service.NewPostService(postRepo, userRepo, categoryRepo, s.notifier, uploader)

	var revoker service.TokenRevoker
	var revoked middleware.RevocationChecker
	if redisClient != nil {
		blacklist := auth.NewBlacklist(redisClient)
		revoker, revoked = blacklist, blacklist
	}
	s.authService = service.NewAuthService(s.userService, tokens, revoker)
	s.auth = middleware.NewAuthenticator(tokens, revoked, s.userService.IsActive)

	return s, nil
}

// App returns the Fiber application, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		s.app = s.newApp()
	}
	return s.app
}

func (s *Server) newApp() *fiber.App {
	bodyLimit := int(s.config.UploadMaxBytes) + 1024*1024
	if bodyLimit < fiber.DefaultBodyLimit {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:      "Overthinkistan API",
		BodyLimit:    bodyLimit,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler,
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler answers errors that escaped the handlers with the standard
// error envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, fe)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()), slog.String("error", err.Error()))
	return respondServiceError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and user refId
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Overthinkistan Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	if s.localStore != nil {
		app.Static(storage.PublicPrefix, s.localStore.Dir(), fiber.Static{
			MaxAge: 86400,
		})
	}

	required := s.auth.Required()
	admin := []fiber.Handler{required, s.auth.AdminRequired()}

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.SignUp)
	authGroup.Post("/signin", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "signin"), s.SignIn)
	authGroup.Post("/signout", required, s.SignOut)

	// User routes. Specific paths come before the generic set.
	users := api.Group("/users")
	users.Get("/me", required, s.GetMe)
	users.Post("/upload-profile-photo", required, middleware.RateLimit(
		s.redis, 10, time.Minute, "upload_profile_photo"), s.UploadProfilePhoto)
	users.Put("/profile-photo", required, s.UpdateProfilePhoto)
	s.userResource().mount(users, resourceGuards{
		create: []fiber.Handler{s.writeGuard()},
		mutate: []fiber.Handler{required, s.selfOrAdmin("refId")},
		hard:   admin,
	})

	categories := api.Group("/categories")
	s.categoryResource().mount(categories, resourceGuards{
		create: []fiber.Handler{s.writeGuard()},
		mutate: []fiber.Handler{s.writeGuard()},
		hard:   admin,
	})

	posts := api.Group("/posts")
	posts.Get("/get-all-posts-with-relations", s.GetAllPostsWithRelations)
	posts.Get("/search", middleware.RateLimit(
		s.redis, 30, time.Minute, "search"), s.SearchPosts)
	posts.Get("/user/:userRefId", required, s.GetUserPosts)
	posts.Get("/category/:categoryRefId", required, s.GetCategoryPosts)
	posts.Post("/upload-post-photo", required, middleware.RateLimit(
		s.redis, 10, time.Minute, "upload_post_photo"), s.UploadPostPhoto)
	posts.Post("/:refId/like", required, s.LikePost)
	posts.Post("/:refId/dislike", required, s.DislikePost)
	posts.Put("/ref/:refId/photo", s.writeGuard(), s.UpdatePostPhoto)
	s.postResource().mount(posts, resourceGuards{
		create: []fiber.Handler{s.writeGuard()},
		mutate: []fiber.Handler{s.writeGuard()},
		hard:   admin,
	})

	// Post event stream. Anonymous listeners get the feed only.
	ws := api.Group("/ws", s.auth.Optional(), s.upgradeRequired)
	ws.Get("/posts", s.PostFeedHandler())

	// Admin routes
	adminGroup := api.Group("/admin", admin...)
	adminGroup.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only a configured but unreachable Redis makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// wireHubs connects every hub to the notifier until ctx is done.
func (s *Server) wireHubs(ctx context.Context) {
	for _, h := range s.hubs {
		if err := h.StartWiring(ctx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start hub wiring",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()
	s.wireHubs(s.shutdownCtx)

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop all wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Close WebSocket connections gracefully
	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
