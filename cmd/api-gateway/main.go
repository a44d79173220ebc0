package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/pp-coaching/coaching-api/api/swagger"
	"github.com/pp-coaching/coaching-api/internal/credential"
	"github.com/pp-coaching/coaching-api/internal/handler"
	"github.com/pp-coaching/coaching-api/internal/repository"
	"github.com/pp-coaching/coaching-api/internal/service"
	"github.com/pp-coaching/coaching-api/pkg/cache"
	"github.com/pp-coaching/coaching-api/pkg/config"
	"github.com/pp-coaching/coaching-api/pkg/database"
	"github.com/pp-coaching/coaching-api/pkg/docstore"
	"github.com/pp-coaching/coaching-api/pkg/jobs"
	"github.com/pp-coaching/coaching-api/pkg/logger"
	"github.com/pp-coaching/coaching-api/pkg/storage"
)

// @title PP Coaching API
// @version 1.0.0
// @description Admissions, enrollment and student portal for a coaching institute
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	docs, err := docstore.Open(cfg.DocStore)
	if err != nil {
		logr.Fatal("failed to open document store", zap.Error(err))
	}
	defer docs.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, listings will not be cached", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init file storage", zap.Error(err))
	}
	files := service.NewFileJanitor(store, jobs.Config{Workers: 2, Logger: logr})
	files.Start(ctx)
	defer files.Stop()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	app := buildApp(cfg, logr, db, docs, redisClient, store, files, metricsSvc)
	router := newRouter(cfg, logr, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// app holds the wired services and handlers.
type app struct {
	metrics *service.MetricsService
	auth    *service.AuthService
	users   *repository.UserRepository
	student *service.StudentService

	authHandler       *handler.AuthHandler
	admissionHandler  *handler.AdmissionHandler
	enrollmentHandler *handler.EnrollmentHandler
	studentHandler    *handler.StudentHandler
	portalHandler     *handler.StudentPortalHandler
	materialHandler   *handler.MaterialHandler
	quizHandler       *handler.QuizHandler
	markHandler       *handler.MarkHandler
	metricsHandler    *handler.MetricsHandler
	filesHandler      *handler.FilesHandler
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, docs *docstore.Store, redisClient *redis.Client, store storage.ObjectStore, files *service.FileJanitor, metricsSvc *service.MetricsService) *app {
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	markRepo := repository.NewMarkRepository(db)
	materialRepo := repository.NewMaterialRepository(docs)
	quizRepo := repository.NewQuizRepository(docs)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	deriver := credential.NewDeriver(credential.Options{
		InstitutionTag:     cfg.Enrollment.InstitutionTag,
		AllowClassFallback: cfg.Enrollment.AllowClassFallback,
		Logger:             logr,
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, admissionRepo, userRepo, deriver, credential.NewPrefixLocker(), metricsSvc, logr, service.EnrollmentConfig{
		CollisionRetries: cfg.Enrollment.CollisionRetries,
	})
	admissionSvc := service.NewAdmissionService(admissionRepo, studentRepo, userRepo, files, validate, logr, service.AdmissionConfig{})
	studentSvc := service.NewStudentService(studentRepo, userRepo, metricsSvc, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, files, cacheSvc, validate, logr, cfg.Storage.MaxUploadBytes)
	quizSvc := service.NewQuizService(quizRepo, cacheSvc, validate, logr)
	markSvc := service.NewMarkService(markRepo, studentRepo, validate, logr)

	checks := map[string]handler.Pinger{
		"postgres": db.PingContext,
		"docstore": func(context.Context) error { return docs.Ping() },
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	a := &app{
		metrics: metricsSvc,
		auth:    authSvc,
		users:   userRepo,
		student: studentSvc,

		authHandler:       handler.NewAuthHandler(authSvc),
		admissionHandler:  handler.NewAdmissionHandler(admissionSvc),
		enrollmentHandler: handler.NewEnrollmentHandler(enrollmentSvc, admissionSvc),
		studentHandler:    handler.NewStudentHandler(studentSvc),
		portalHandler:     handler.NewStudentPortalHandler(markSvc, materialSvc),
		materialHandler:   handler.NewMaterialHandler(materialSvc),
		quizHandler:       handler.NewQuizHandler(quizSvc),
		markHandler:       handler.NewMarkHandler(markSvc),
		metricsHandler:    handler.NewMetricsHandler(metricsSvc, checks),
	}
	if local, ok := store.(*storage.LocalStorage); ok {
		a.filesHandler = handler.NewFilesHandler(local)
	}
	return a
}
