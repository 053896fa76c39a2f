package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/database"
	_ "github.com/lshigami/gradebridge/docs" // Swagger docs
	"github.com/lshigami/gradebridge/internal/cache"
	"github.com/lshigami/gradebridge/internal/controller"
	adminctrl "github.com/lshigami/gradebridge/internal/controller/admin"
	userctrl "github.com/lshigami/gradebridge/internal/controller/user"
	"github.com/lshigami/gradebridge/internal/filestore"
	"github.com/lshigami/gradebridge/internal/logger"
	"github.com/lshigami/gradebridge/internal/lti"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/middleware"
	"github.com/lshigami/gradebridge/internal/service"
	"github.com/lshigami/gradebridge/internal/token"
)

// @title edX Grade Bridge API
// @version 1.0
// @description Receives LTI launches from edX, records learner submissions, lets graders enter final grades and sends them back to the edX gradebook.
// @contact.name API Support
// @contact.url http://example.com/support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey AdminToken
// @in header
// @name Authorization
// @description Bearer token configured as ADMIN_TOKEN.
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDocumentRepository,
			NewRecorder,
			NewGinEngine,
		),

		// Collaborators of the services
		fx.Provide(
			NewTokenGenerator,
			NewNonceStore,
			NewFileStore,
			NewOutcomeSender,
			service.NewUserInfoService,
		),

		// Services Layer
		fx.Provide(
			service.NewLaunchService,
			service.NewSubmissionService,
			service.NewGradeService,
			service.NewOutcomeService,
		),

		// API Controllers Layer
		fx.Provide(
			userctrl.NewLaunchController,
			userctrl.NewSubmissionController,
			adminctrl.NewGradeController,
			adminctrl.NewOutcomeController,
		),

		fx.Invoke(ConfigureLogger),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Application did not stop cleanly")
	}
}

// ConfigureLogger applies LOG_LEVEL and LOG_PRETTY once the config is loaded.
func ConfigureLogger(cfg *config.Config) {
	logger.Configure(cfg.Log.Level, cfg.Log.Pretty)
}

func NewRecorder(cfg *config.Config) metrics.Recorder {
	return metrics.Init(cfg.Metrics.Enabled)
}

func NewTokenGenerator(cfg *config.Config) (service.TokenGenerator, error) {
	g, err := token.NewGenerator(cfg.Token.Secret)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// NewNonceStore keeps launch nonces in Redis when LTI_NONCE_STORE is redis,
// in process otherwise.
func NewNonceStore(lc fx.Lifecycle, cfg *config.Config) (cache.NonceStore, error) {
	if cfg.LTI.NonceStore != "redis" {
		return cache.NewMemoryNonceStore(), nil
	}
	store, err := cache.NewRedisNonceStore(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	}, "gradebridge_nonce:")
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(store.Close))
	return store, nil
}

// NewFileStore returns nil when FILE_STORE_PATH is empty, which turns the
// file copy of submissions off.
func NewFileStore(cfg *config.Config) filestore.FileStore {
	if cfg.Submission.FileStorePath == "" {
		log.Warn().Msg("FILE_STORE_PATH is empty, submissions will not be written to disk")
		return nil
	}
	return filestore.NewOsFileStore(cfg.Submission.FileStorePath)
}

func NewOutcomeSender(cfg *config.Config) lti.OutcomeSender {
	return lti.NewClient(
		lti.WithTimeout(cfg.LTI.Timeout),
		lti.WithBreaker(cfg.LTI.BreakerMaxFailures, cfg.LTI.BreakerOpenTimeout),
	)
}

func NewGinEngine(cfg *config.Config, recorder metrics.Recorder) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(metrics.HTTPMetricsMiddleware(recorder))

	origins := cfg.CORS.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", userctrl.TokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI
	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Controllers groups every HTTP controller for route registration.
type Controllers struct {
	fx.In

	Launch     *userctrl.LaunchController
	Submission *userctrl.SubmissionController
	Grade      *adminctrl.GradeController
	Outcome    *adminctrl.OutcomeController
}

// RegisterRoutes mounts the public LTI and submission routes behind the rate
// limiter and the grading routes behind the admin token.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, ctrls Controllers) error {
	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		StoreType:         middleware.RateLimitStoreType(cfg.RateLimit.Store),
		RedisAddr:         cfg.RateLimit.RedisAddr,
		RedisPassword:     cfg.RateLimit.RedisPassword,
		RedisDB:           cfg.RateLimit.RedisDB,
	})
	if err != nil {
		return err
	}
	adminAuth := middleware.AdminAuth(cfg.Admin.Token)

	router.GET("/health", controller.Health)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", adminAuth, metrics.Handler())
	} else {
		router.GET("/metrics", metrics.DisabledHandler)
	}

	// User Routes (prefixed with /api/v1)
	userAPIGroup := router.Group("/api/v1", limiter)
	{
		userAPIGroup.POST("/lti/launch", ctrls.Launch.Launch)
		userAPIGroup.GET("/tokens/:token", ctrls.Submission.GetToken)
		userAPIGroup.POST("/submissions", ctrls.Submission.Submit)
	}

	// Admin Routes (prefixed with /api/v1/admin)
	adminAPIGroup := router.Group("/api/v1/admin", adminAuth)
	{
		gradesGroup := adminAPIGroup.Group("/grades")
		gradesGroup.POST("", ctrls.Grade.SubmitGrades)
		gradesGroup.POST("/users/:user_id", ctrls.Grade.SubmitUserGrades)
		gradesGroup.POST("/users/:user_id/:header", ctrls.Grade.SubmitAssignmentGrades)

		outcomesGroup := adminAPIGroup.Group("/outcomes")
		outcomesGroup.POST("", ctrls.Outcome.DispatchEverything)
		outcomesGroup.POST("/headers/:header", ctrls.Outcome.DispatchAll)
		outcomesGroup.POST("/users/:user_id", ctrls.Outcome.DispatchUser)
		outcomesGroup.POST("/users/:user_id/:header", ctrls.Outcome.DispatchOne)
	}
	return nil
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Config, ctrls Controllers) error {
	if err := RegisterRoutes(router, cfg, ctrls); err != nil {
		return err
	}
	if cfg.Admin.Token == "" {
		log.Warn().Msg("ADMIN_TOKEN is empty, every admin route will answer 401")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Grade bridge server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
	return nil
}
