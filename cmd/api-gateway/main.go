package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classpulse/attendance-core/api/swagger"
	"github.com/classpulse/attendance-core/internal/handler"
	"github.com/classpulse/attendance-core/internal/middleware"
	"github.com/classpulse/attendance-core/internal/repository"
	"github.com/classpulse/attendance-core/internal/service"
	"github.com/classpulse/attendance-core/pkg/cache"
	"github.com/classpulse/attendance-core/pkg/config"
	"github.com/classpulse/attendance-core/pkg/database"
	"github.com/classpulse/attendance-core/pkg/logger"
	corsmiddleware "github.com/classpulse/attendance-core/pkg/middleware/cors"
	reqidmiddleware "github.com/classpulse/attendance-core/pkg/middleware/requestid"
)

// @title Attendance Core API
// @version 0.1.0
// @description Timetable projection, token check-in, schedule reconciliation, and risk rosters
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	slotRepo := repository.NewSlotRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	projector := service.NewProjector()
	authSvc := service.NewAuthService(cfg.JWT, logr)
	sessionSvc := service.NewSessionService(sessionRepo, slotRepo, validate, logr, cfg.Attendance)
	checkInSvc := service.NewCheckInService(sessionRepo, slotRepo, attendanceRepo, validate, logr, cfg.Attendance.LateThreshold)

	scheduleSvc := service.NewScheduleService(slotRepo, sessionRepo, attendanceRepo, rosterRepo, projector, nil, cfg.Schedule.CacheTTL, logr)
	if cfg.Schedule.CacheEnabled {
		scheduleSvc = service.NewScheduleService(slotRepo, sessionRepo, attendanceRepo, rosterRepo, projector, service.NewRedisCache(redisClient), cfg.Schedule.CacheTTL, logr)
	}
	riskSvc := service.NewRiskService(attendanceRepo, slotRepo, rosterRepo, projector, cfg.Risk, logr)
	alertSvc := service.NewAlertService(riskSvc, rosterRepo, snapshotRepo, cfg.Risk.WindowDays, cfg.Alerts.SnapshotTTL, logr)

	sessionHandler := handler.NewSessionHandler(sessionSvc, metricsSvc)
	checkInHandler := handler.NewCheckInHandler(checkInSvc, metricsSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, metricsSvc)
	riskHandler := handler.NewRiskHandler(riskSvc, alertSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.POST("/sessions", sessionHandler.CreateSession)
		api.POST("/sessions/:slotId/:date/token", sessionHandler.IssueToken)
		api.POST("/sessions/:slotId/:date/close", sessionHandler.CloseSession)
		api.DELETE("/tokens/:tokenId", sessionHandler.RevokeToken)

		api.POST("/checkin", checkInHandler.CheckIn)
		api.POST("/attendance/override", checkInHandler.Override)

		api.GET("/schedule", scheduleHandler.GetSchedule)

		api.GET("/students/:studentId/risk", riskHandler.GetStudentRisk)
		api.GET("/risk-roster", riskHandler.GetRiskRoster)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
