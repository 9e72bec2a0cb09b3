package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjd-portal/grievance-api/api/swagger"
	"github.com/sjd-portal/grievance-api/internal/handler"
	"github.com/sjd-portal/grievance-api/internal/middleware"
	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/internal/realtime"
	"github.com/sjd-portal/grievance-api/internal/repository"
	"github.com/sjd-portal/grievance-api/internal/service"
	"github.com/sjd-portal/grievance-api/pkg/cache"
	"github.com/sjd-portal/grievance-api/pkg/config"
	"github.com/sjd-portal/grievance-api/pkg/database"
	exportpkg "github.com/sjd-portal/grievance-api/pkg/export"
	"github.com/sjd-portal/grievance-api/pkg/jobs"
	"github.com/sjd-portal/grievance-api/pkg/logger"
	"github.com/sjd-portal/grievance-api/pkg/mailer"
	corsmiddleware "github.com/sjd-portal/grievance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sjd-portal/grievance-api/pkg/middleware/requestid"
	"github.com/sjd-portal/grievance-api/pkg/storage"
)

// @title SJD Grievance Portal API
// @version 1.0.0
// @description Backend for the social justice department grievance portal
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Notification dispatch. Mail and realtime channels degrade to no-ops
	// when disabled.
	var notifier service.Notifier = service.NopNotifier{}
	var notificationSvc *service.NotificationService
	if cfg.Notifications.Enabled {
		mail := mailer.New(mailer.Config{
			Host:     cfg.Notifications.SMTPHost,
			Port:     cfg.Notifications.SMTPPort,
			Username: cfg.Notifications.SMTPUser,
			Password: cfg.Notifications.SMTPPassword,
			From:     cfg.Notifications.FromAddress,
		})
		queueCfg := jobs.QueueConfig{
			Workers:    cfg.Notifications.WorkerConcurrency,
			MaxRetries: cfg.Notifications.WorkerRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
		}
		if cfg.Realtime.Enabled {
			events := realtime.NewPublisher(redisClient, cfg.Realtime.Channel)
			notificationSvc = service.NewNotificationService(mail, events, userRepo, logr, queueCfg)
		} else {
			notificationSvc = service.NewNotificationService(mail, nil, userRepo, logr, queueCfg)
		}
		notificationSvc.Start(ctx)
		defer notificationSvc.Stop()
		notifier = notificationSvc
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)

	authSvc := service.NewAuthService(userRepo, sequenceRepo, notifier, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "grievance-api",
	})
	userSvc := service.NewUserService(userRepo, archiveRepo, complaintRepo, sequenceRepo, notifier, validate, logr)
	complaintSvc := service.NewComplaintService(complaintRepo, sequenceRepo, userRepo, notifier, validate, logr, cfg.Complaints.AllocatorRetries)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, userRepo, notifier, validate, logr)
	dashboardSvc := service.NewDashboardService(complaintRepo, assignmentRepo, userRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	// Report export pipeline.
	reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	exportSvc := service.NewExportService(complaintRepo, assignmentRepo, reportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Uploads.SignedURLTTL,
	}, logr, exportpkg.NewCSVExporter(), exportpkg.NewPDFExporter())

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, 3, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		Logger:     logr,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Uploads.SignedURLTTL,
		CleanupInterval: time.Hour,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	// Attachment uploads.
	uploadStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	// Realtime fan-out hub.
	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(redisClient, cfg.Realtime.Channel, logr)
		go hub.Run(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	archiveHandler := handler.NewArchiveHandler(userSvc)
	complaintHandler := handler.NewComplaintHandler(complaintSvc, userSvc, uploadStorage)
	publicHandler := handler.NewPublicHandler(complaintSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, userSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, userSvc)
	reportHandler := handler.NewReportHandler(reportSvc, userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	public := api.Group("/public")
	{
		public.POST("/complaints", publicHandler.File)
		public.GET("/complaints/:mobile", publicHandler.ListByMobile)
		public.GET("/track/:trackingId", publicHandler.Track)
	}

	officials := middleware.RequireRoles(models.RoleOfficer, models.RoleDepartment, models.RoleDM, models.RoleAdmin, models.RoleSuperAdmin)

	complaints := api.Group("/complaints", middleware.JWT(authSvc))
	{
		complaints.POST("", complaintHandler.File)
		complaints.GET("", complaintHandler.List)
		complaints.GET("/stats", complaintHandler.Stats)
		complaints.POST("/attachments", complaintHandler.UploadAttachment)
		complaints.GET("/:id", complaintHandler.Get)
		complaints.POST("/:id/updates", officials, complaintHandler.AppendUpdate)
		complaints.POST("/:id/forward", officials, complaintHandler.Forward)
		complaints.POST("/:id/remarks", middleware.RequireRoles(models.RolePublic), complaintHandler.Remark)
	}

	assignments := api.Group("/assignments", middleware.JWT(authSvc))
	{
		assignments.POST("", middleware.RequireRoles(models.RoleDM), assignmentHandler.Create)
		assignments.GET("", assignmentHandler.ListMine)
		assignments.GET("/:id", assignmentHandler.Get)
		assignments.PUT("/:id/status", assignmentHandler.UpdateStatus)
		assignments.POST("/:id/report", middleware.RequireRoles(models.RoleOfficer), assignmentHandler.VisitReport)
	}

	superadmin := middleware.RequireRoles(models.RoleSuperAdmin)
	users := api.Group("/users", middleware.JWT(authSvc), superadmin)
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	archives := api.Group("/archives", middleware.JWT(authSvc), superadmin)
	{
		archives.GET("/users", archiveHandler.List)
		archives.GET("/users/:id", archiveHandler.Get)
	}

	if cfg.Dashboard.Enabled {
		dashboard := api.Group("/dashboard", middleware.JWT(authSvc))
		{
			dashboard.GET("/overview", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), dashboardHandler.Overview)
			dashboard.GET("/dm", middleware.RequireRoles(models.RoleDM), dashboardHandler.DM)
			dashboard.GET("/department", middleware.RequireRoles(models.RoleDepartment), dashboardHandler.Department)
		}
	}

	if cfg.Reports.Enabled {
		reports := api.Group("/reports")
		{
			reports.POST("/generate", middleware.JWT(authSvc), reportHandler.Generate)
			reports.GET("", middleware.JWT(authSvc), reportHandler.ListMine)
			reports.GET("/:id/status", middleware.JWT(authSvc), reportHandler.Status)
			// Download auth rides on the signed token, not the session.
			reports.GET("/download/:token", reportHandler.Download)
		}
	}

	if hub != nil {
		wsHandler := handler.NewWSHandler(hub, logr)
		api.GET("/ws", middleware.JWT(authSvc), wsHandler.Connect)
	}

	api.GET("/metrics/snapshot", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("forced shutdown", "error", err)
	}
}
