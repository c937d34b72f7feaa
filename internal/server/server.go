// Package server contains the HTTP handlers for the portfolio API.
package server

import (
	"context"
	"fmt"
	"time"

	"devfolio/internal/auth"
	"devfolio/internal/cache"
	"devfolio/internal/config"
	"devfolio/internal/database"
	"devfolio/internal/featureflags"
	"devfolio/internal/middleware"
	"devfolio/internal/models"
	"devfolio/internal/repository"
	"devfolio/internal/search"
	"devfolio/internal/service"
	"devfolio/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries the external providers the services talk to.
// Nil fields fall back to the unconfigured implementations.
type Deps struct {
	Images  storage.ImageStorage
	Indexer search.ProjectIndexer
	Drafter service.Drafter
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	rateLimiter    *middleware.Limiter
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	verifier       *auth.Verifier
	featureFlags   *featureflags.Manager

	accountService     *service.AccountService
	projectService     *service.ProjectService
	engagementService  *service.EngagementService
	commentService     *service.CommentService
	mediaService       *service.MediaService
	descriptionService *service.DescriptionService
}

// NewServer connects the database and Redis, builds the providers from cfg
// and returns a ready Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.Migrate(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	deps, err := BuildDeps(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, cache.GetClient(), deps)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps Deps) (*Server, error) {
	if deps.Images == nil {
		deps.Images = storage.NewUnconfigured()
	}
	if deps.Indexer == nil {
		deps.Indexer = search.NewNoopIndexer()
	}

	accountRepo := repository.NewAccountRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		rateLimiter:    middleware.NewLimiter(redisClient, cfg.Env),
		promMiddleware: middleware.InitMetrics("devfolio-api"),
		verifier:       auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		featureFlags:   flags,
	}
	s.accountService = service.NewAccountService(accountRepo, projectRepo)
	s.projectService = service.NewProjectService(projectRepo, accountRepo, deps.Indexer, deps.Images, flags)
	s.engagementService = service.NewEngagementService(projectRepo, likeRepo)
	s.commentService = service.NewCommentService(commentRepo, projectRepo)
	s.mediaService = service.NewMediaService(deps.Images, flags, service.MediaOptions{
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})
	s.descriptionService = service.NewDescriptionService(deps.Drafter, flags)

	return s, nil
}

// App builds the Fiber app with middleware and routes on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "devfolio API",
		BodyLimit: int(s.config.MaxUploadBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing first so the trace id reaches the context middleware.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// The image proxy is embedded cross-origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "devfolio API Metrics",
	}))

	// Public routes
	public := api.Group("/public")
	public.Get("/projects/popular", s.GetPopularProjects)
	public.Get("/projects/search", s.rateLimiter.Handler(middleware.SearchRule), s.SearchProjects)
	public.Get("/projects/:username/:slug", s.GetPublicProject)
	public.Get("/users/:username", s.GetPublicProfile)

	api.Post("/projects/:id/view", s.RecordView)
	api.Get("/projects/:id/comments", s.GetComments)
	api.Get("/image", s.rateLimiter.Handler(middleware.ImageProxyRule), s.ProxyImage)
	api.Get("/og-image", s.rateLimiter.Handler(middleware.OGImageRule), s.GetOGImage)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	protected.Get("/user", s.GetMyAccount)
	protected.Put("/user", s.UpdateMyProfile)

	projects := protected.Group("/projects")
	projects.Get("/", s.GetMyProjects)
	projects.Post("/", s.CreateProject)
	projects.Post("/reindex", s.ReindexMyProjects)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	projects.Put("/:id/publish", s.PublishProject)
	projects.Post("/:id/like", s.rateLimiter.Handler(middleware.LikeRule), s.ToggleLike)
	projects.Post("/:id/comments", s.rateLimiter.Handler(middleware.CommentRule), s.CreateComment)
	projects.Put("/:id", s.UpdateProject)
	projects.Delete("/:id", s.DeleteProject)

	protected.Delete("/comments/:id", s.DeleteComment)

	protected.Post("/upload", s.rateLimiter.Handler(middleware.UploadRule), s.UploadImage)
	protected.Post("/ai/generate-description", s.rateLimiter.Handler(middleware.DescriptionRule), s.GenerateDescription)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis only backs the cache and rate limits, so its absence degrades rather than fails.
	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Listen serves the app on the configured port until Shutdown.
func (s *Server) Listen() error {
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
