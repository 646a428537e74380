package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"learnhub/config"
	"learnhub/internal/handler"
	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/service"
	"learnhub/internal/ws"
	"learnhub/pkg/cloudinary"
	"learnhub/pkg/mailer"
	"learnhub/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// Deps are the long-lived clients built by main.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Cloud    cloudinary.Client
	Payments payment.Provider
	Mail     mailer.Sender
	Pusher   service.Pusher
	Limiter  *middleware.InMemoryRateLimiter
	Hub      *ws.Hub
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		slog.Error("register validators", "error", err)
	}
	r := gin.New()
	r.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RateLimit(d.Limiter, &cfg.JWT))

	// Repositories
	userRepo := repository.NewUserRepository(d.DB)
	categoryRepo := repository.NewCategoryRepository(d.DB)
	courseRepo := repository.NewCourseRepository(d.DB)
	enrollmentRepo := repository.NewEnrollmentRepository(d.DB)
	paymentRepo := repository.NewPaymentRepository(d.DB)
	examRepo := repository.NewExamRepository(d.DB)
	forumRepo := repository.NewForumRepository(d.DB)
	reportRepo := repository.NewReportRepository(d.DB)
	notificationRepo := repository.NewNotificationRepository(d.DB)
	auditRepo := repository.NewAuditLogRepository(d.DB)
	adminRepo := repository.NewAdminRepository(d.DB)
	tx := repository.NewTxRunner(d.DB)
	otpStore := service.NewRedisOTPStore(d.Redis)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo, otpStore, otpStore, d.Mail)
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, d.Pusher)
	enrollSvc := service.NewEnrollmentService(courseRepo, enrollmentRepo, notifSvc)
	courseSvc := service.NewCourseService(categoryRepo, courseRepo, enrollmentRepo, enrollSvc, cfg.Payment.Currency)
	paymentSvc := service.NewPaymentService(d.Payments, tx, paymentRepo, courseRepo, enrollmentRepo, auditRepo, notifSvc)
	examSvc := service.NewExamService(cfg.Exam, tx, examRepo, courseRepo, enrollSvc)
	forumSvc := service.NewForumService(tx, forumRepo, courseRepo, enrollSvc, notifSvc, d.Hub)
	reportSvc := service.NewReportService(tx, reportRepo, forumRepo, courseRepo, enrollSvc, auditRepo, notifSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditRepo)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, authSvc, auditRepo)
	meHandler := handler.NewMeHandler(authSvc, enrollSvc, paymentSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	categoryHandler := handler.NewCategoryHandler(courseSvc, auditRepo)
	courseHandler := handler.NewCourseHandler(courseSvc, enrollSvc, auditRepo)
	uploadHandler := handler.NewUploadHandler(d.Cloud, courseSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, auditRepo)
	paymentWebhookHandler := handler.NewPaymentWebhookHandler(paymentSvc)
	examHandler := handler.NewExamHandler(examSvc)
	forumHandler := handler.NewForumHandler(forumSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	adminHandler := handler.NewAdminHandler(adminRepo, auditRepo, authSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	optionalAuth := middleware.OptionalAuth(&cfg.JWT)
	adminOnly := middleware.AdminRequired()
	instructorOnly := middleware.InstructorRequired()

	r.GET("/healthz", health(d))
	r.GET("/ws/forum", ws.ServeForum(&cfg.JWT, d.Hub, enrollSvc, cfg.Server.AllowedOrigins))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", optionalAuth, authHandler.Logout)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
			authGroup.POST("/send-otp", authHandler.SendOTP)
			authGroup.POST("/verify-otp", authHandler.VerifyOTP)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
		}

		api.GET("/categories", categoryHandler.List)
		api.POST("/categories", authMw, adminOnly, categoryHandler.Create)
		api.PUT("/categories/:id", authMw, adminOnly, categoryHandler.Update)
		api.DELETE("/categories/:id", authMw, adminOnly, categoryHandler.Delete)

		courses := api.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", optionalAuth, courseHandler.Get)
			courses.POST("/:id/enroll", authMw, courseHandler.Enroll)
			courses.GET("/:id/exams", authMw, examHandler.ListForCourse)
		}

		exams := api.Group("/exams", authMw)
		{
			exams.GET("/:id", examHandler.Get)
			exams.POST("/:id/submit", examHandler.Submit)
			exams.GET("/:id/attempts", examHandler.Attempts)
		}

		me := api.Group("/me", authMw)
		{
			me.GET("", meHandler.Get)
			me.PATCH("", meHandler.Update)
			me.POST("/fcm-token", meHandler.RegisterFCMToken)
			me.GET("/enrollments", meHandler.Enrollments)
			me.GET("/courses/:id/progress", meHandler.Progress)
			me.POST("/courses/:id/lessons/:lessonId/complete", meHandler.CompleteLesson)
			me.GET("/payments", meHandler.Payments)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		pay := api.Group("/payment", authMw)
		{
			pay.POST("/create-order", paymentHandler.CreateOrder)
			pay.POST("/verify-payment", paymentHandler.VerifyPayment)
		}
		api.POST("/webhooks/payment", paymentWebhookHandler.Handle)

		forum := api.Group("/forum", authMw)
		{
			forum.GET("/courses/:courseId/questions", forumHandler.ListQuestions)
			forum.POST("/courses/:courseId/questions", forumHandler.CreateQuestion)
			forum.GET("/questions/:id", forumHandler.GetThread)
			forum.POST("/questions/:id/answers", forumHandler.CreateAnswer)
			forum.PATCH("/questions/:id/lock", forumHandler.ToggleLock)
			forum.PATCH("/questions/:id/solve", forumHandler.ToggleSolve)
			forum.DELETE("/questions/:id", forumHandler.DeleteQuestion)
			forum.POST("/answers/:id/replies", forumHandler.CreateReply)
			forum.DELETE("/answers/:id", forumHandler.DeleteAnswer)
			forum.DELETE("/replies/:id", forumHandler.DeleteReply)
			forum.POST("/reports", reportHandler.Create)
		}

		instructor := api.Group("/instructor", authMw, instructorOnly)
		{
			instructor.GET("/courses", courseHandler.ListMine)
			instructor.POST("/courses", courseHandler.Create)
			instructor.PUT("/courses/:id", courseHandler.Update)
			instructor.DELETE("/courses/:id", courseHandler.Delete)
			instructor.PATCH("/courses/:id/status", courseHandler.SetStatus)
			instructor.POST("/courses/:id/thumbnail", uploadHandler.CourseThumbnail)
			instructor.POST("/courses/:id/lessons", courseHandler.AddLesson)
			instructor.GET("/courses/:id/students", courseHandler.Students)
			instructor.POST("/courses/:id/exams", examHandler.Create)
			instructor.PUT("/lessons/:id", courseHandler.UpdateLesson)
			instructor.DELETE("/lessons/:id", courseHandler.DeleteLesson)
			instructor.POST("/lessons/:id/video", uploadHandler.LessonVideo)
			instructor.POST("/exams/:id/questions", examHandler.AddQuestion)
			instructor.DELETE("/questions/:id", examHandler.DeleteQuestion)
			instructor.GET("/forum/reports", reportHandler.List)
			instructor.PATCH("/forum/reports/:id", reportHandler.Action)
		}

		admin := api.Group("/admin", authMw, adminOnly)
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/analytics", adminHandler.Analytics)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/:id", adminHandler.GetUser)
			admin.PATCH("/users/:id", adminHandler.UpdateUser)
			admin.GET("/courses", courseHandler.ListAll)
			admin.PATCH("/courses/:id/status", courseHandler.SetStatus)
			admin.GET("/payments", paymentHandler.List)
			admin.GET("/forum/reports", reportHandler.List)
			admin.PATCH("/forum/reports/:id", reportHandler.Action)
			admin.GET("/audit-logs", adminHandler.AuditLogs)
		}
	}
	return r
}

// health reports database and Redis reachability.
func health(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		checks := gin.H{"database": "ok", "redis": "ok"}
		status := http.StatusOK
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if d.Redis != nil {
			if err := d.Redis.Ping(ctx).Err(); err != nil {
				checks["redis"] = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}
		body := gin.H{"status": "ok", "checks": checks}
		if d.Hub != nil {
			body["ws_clients"] = d.Hub.ClientCount()
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}
