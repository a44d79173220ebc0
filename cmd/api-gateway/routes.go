package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/middleware"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/session"
	"github.com/pp-coaching/coaching-api/pkg/config"
	"github.com/pp-coaching/coaching-api/pkg/logger"
	corsmiddleware "github.com/pp-coaching/coaching-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pp-coaching/coaching-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.metricsHandler.Health)
	r.GET("/ready", a.metricsHandler.Ready)
	if a.metrics != nil {
		r.GET("/metrics", a.metricsHandler.Prometheus)
	}
	if a.filesHandler != nil {
		r.GET("/files/:token", a.filesHandler.Download)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.Use(middleware.Session(middleware.SessionDeps{
		Auth:     a.auth,
		Verifier: a.student,
		Config:   cfg.Session,
		Metrics:  a.metrics,
		Logger:   logr,
	}))

	public := api.Group("")
	public.Use(middleware.Guard(session.RoutePublic, cfg.Session, a.metrics))
	{
		public.POST("/auth/login", a.authHandler.Login)
		public.POST("/auth/refresh", a.authHandler.Refresh)
		public.POST("/student/login", a.portalHandler.Login)
		public.POST("/student/logout", a.portalHandler.Logout)
		public.POST("/admissions", a.admissionHandler.Create)
		public.POST("/admissions/photo", a.admissionHandler.UploadPhoto)
		public.GET("/materials", a.materialHandler.List)
		public.GET("/live-quiz", a.quizHandler.Live)
	}

	student := api.Group("/student")
	student.Use(middleware.Guard(session.RouteStudent, cfg.Session, a.metrics))
	{
		student.GET("/me", a.portalHandler.Me)
		student.GET("/marks", a.portalHandler.Marks)
		student.GET("/materials", a.portalHandler.Materials)
	}

	admin := api.Group("")
	admin.Use(middleware.Guard(session.RouteAdmin, cfg.Session, a.metrics))
	admin.Use(middleware.RequireRoles(models.RoleOwner, models.RoleAdmin))
	{
		admin.POST("/auth/logout", a.authHandler.Logout)
		admin.GET("/auth/me", a.authHandler.Me)

		admin.GET("/admissions", a.admissionHandler.List)
		admin.GET("/admissions/:id", a.admissionHandler.Get)
		admin.PATCH("/admissions/:id", a.admissionHandler.Update)
		admin.GET("/admissions/:id/pdf", a.admissionHandler.FormPDF)
		admin.POST("/admissions/:id/enroll", a.enrollmentHandler.Enroll)
		admin.POST("/admissions/enroll-all", a.enrollmentHandler.EnrollAll)
		admin.DELETE("/admissions/:id", middleware.RequireRoles(models.RoleOwner), a.admissionHandler.Purge)

		admin.GET("/students", a.studentHandler.List)
		admin.POST("/students", a.studentHandler.Create)
		admin.GET("/students/export", a.studentHandler.Export)
		admin.GET("/students/:id", a.studentHandler.Get)
		admin.DELETE("/students/:id", a.enrollmentHandler.Unenroll)
		admin.GET("/students/:id/marks", a.markHandler.ListByStudent)
		admin.GET("/students/:id/marks/export", a.markHandler.Export)

		admin.POST("/marks", middleware.Audit(a.users, logr, models.AuditActionMarkCreate, "mark"), a.markHandler.Create)
		admin.DELETE("/marks/:id", middleware.Audit(a.users, logr, models.AuditActionMarkDelete, "mark"), a.markHandler.Delete)

		admin.POST("/materials", middleware.Audit(a.users, logr, models.AuditActionMaterialCreate, "material"), a.materialHandler.Create)
		admin.PUT("/materials/:id", middleware.Audit(a.users, logr, models.AuditActionMaterialUpdate, "material"), a.materialHandler.Update)
		admin.DELETE("/materials/:id", middleware.Audit(a.users, logr, models.AuditActionMaterialDelete, "material"), a.materialHandler.Delete)

		admin.GET("/quizzes", a.quizHandler.List)
		admin.POST("/quizzes", middleware.Audit(a.users, logr, models.AuditActionQuizCreate, "quiz"), a.quizHandler.Create)
		admin.DELETE("/quizzes/:id", middleware.Audit(a.users, logr, models.AuditActionQuizDelete, "quiz"), a.quizHandler.Delete)
		admin.PUT("/live-quiz", middleware.Audit(a.users, logr, models.AuditActionLiveQuizSet, "live_quiz"), a.quizHandler.SetLive)

		admin.GET("/admin/metrics", a.metricsHandler.Snapshot)
	}

	return r
}
