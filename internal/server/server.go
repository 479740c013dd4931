// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	_ "snapgram/docs" // swagger docs
	"snapgram/internal/auth"
	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/featureflags"
	"snapgram/internal/media"
	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/notifications"
	"snapgram/internal/repository"
	"snapgram/internal/service"

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

// Deps are the external collaborators that are not derived from the
// database or Redis. Zero values are valid: a nil Uploader rejects uploads,
// nil AI collaborators fall back, and a nil Google verifier disables Google
// sign-in.
type Deps struct {
	Uploader    media.Uploader
	Replier     service.Replier
	Recommender service.Recommender
	Google      auth.GoogleVerifier
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens       *auth.TokenManager
	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	chatRepo     repository.ChatRepository

	hub          *notifications.RoomHub
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager

	userService           *service.UserService
	postService           *service.PostService
	chatService           *service.ChatService
	recommendationService *service.RecommendationService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case real-time events are delivered only
// to sockets on this instance.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps Deps) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and database are required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("snapgram-api"),
		tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		chatRepo:       repository.NewChatRepository(db),
		hub:            notifications.NewRoomHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.notifier = notifications.NewNotifier(redisClient, s.hub)

	s.userService = service.NewUserService(s.userRepo, s.tokens, deps.Google)
	s.postService = service.NewPostService(s.postRepo, s.categoryRepo, deps.Uploader, maxUploadBytes(cfg))
	s.chatService = service.NewChatService(s.chatRepo, s.userRepo, s.notifier, deps.Replier, s.featureFlags)
	s.recommendationService = service.NewRecommendationService(s.postRepo, s.categoryRepo, deps.Recommender, s.featureFlags)

	return s, nil
}

func maxUploadBytes(cfg *config.Config) int64 {
	mb := cfg.ImageMaxUploadSizeMB
	if mb <= 0 {
		mb = media.DefaultMaxUploadSizeMB
	}
	return int64(mb) << 20
}

// App builds the Fiber application with the full middleware chain and
// routes. It is what Start listens with and what tests drive directly.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Snapgram API",
		// Room for a full post: every image at the size cap plus form fields.
		BodyLimit: int(maxUploadBytes(s.config))*service.MaxImagesPerPost + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if !errors.As(err, &fiberErr) {
				middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			}
			return models.RespondWithError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
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
				"message": "Too many requests, please try again later.",
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
		Title: "Snapgram Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := middleware.AuthRequired(s.tokens, s.userRepo)

	users := api.Group("/users")
	users.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	users.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Post("/auth/google", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.GoogleLogin)
	users.Get("/me", authRequired, s.GetMe)
	users.Get("/me/features", authRequired, s.GetMyFeatures)

	api.Get("/categories", s.GetCategories)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	// Specific routes before the generic /:id ones
	posts.Get("/me", authRequired, s.GetMyPosts)
	posts.Post("/", authRequired, middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", authRequired, s.ToggleLike)
	posts.Put("/:id", authRequired, s.UpdatePost)
	posts.Delete("/:id", authRequired, s.DeletePost)

	chats := api.Group("/chats", authRequired)
	chats.Post("/ai", s.CreateAIChat)
	chats.Post("/", s.CreateChat)
	chats.Get("/", s.GetChats)
	chats.Get("/:chatId/messages", s.GetMessages)
	chats.Post("/:chatId/messages", middleware.RateLimit(s.redis, 30, time.Minute, "send_chat"), s.SendMessage)

	aiRoutes := api.Group("/ai", authRequired)
	aiRoutes.Get("/recommendations", s.GetRecommendations)

	ws := api.Group("/ws", middleware.WebSocketAuthRequired(s.tokens, s.userRepo))
	ws.Get("/chat", s.WebSocketChatHandler())
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

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Without Redis the instance still serves; only fan-out is local.
		redisStatus = "unavailable"
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

// Start wires Redis fan-out and serves until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if err := s.notifier.Start(s.shutdownCtx); err != nil {
		// Local delivery still works; other instances just won't see our events.
		log.Printf("failed to start real-time fan-out: %v", err)
	}

	s.app = s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the Redis subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	// Close WebSocket connections gracefully
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", s.hub.Name(), err))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("sql DB: %w", cerr))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("redis: %w", rerr))
		}
	}

	log.Println("Server shutdown complete")
	return errors.Join(errs...)
}
