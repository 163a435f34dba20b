package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/config"
	"github.com/cppla/gymkit/controllers"
	"github.com/cppla/gymkit/devicesync"
	"github.com/cppla/gymkit/middleware"
	"github.com/cppla/gymkit/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl))
		r.Use(utils.RecoveryWithZap(gl))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	syncService := devicesync.NewService(db, utils.GetRedis(), utils.Sugar, devicesync.Options{
		DialTimeout:  time.Duration(cfg.DeviceDialTimeoutSec) * time.Second,
		ReadTimeout:  time.Duration(cfg.DeviceReadTimeoutSec) * time.Second,
		FetchRetries: cfg.DeviceFetchRetries,
		LockTTL:      time.Duration(cfg.SyncLockTTLSec) * time.Second,
	})

	authController := controllers.NewAuthController(db)
	memberController := controllers.NewMemberController(db)
	trainerController := controllers.NewTrainerController(db)
	packageController := controllers.NewPackageController(db)
	paymentController := controllers.NewPaymentController(db)
	attendanceController := controllers.NewAttendanceController(db)
	deviceController := controllers.NewDeviceController(db, syncService)
	dashboardController := controllers.NewDashboardController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())

	protected.GET("/members", memberController.ListMembers)
	protected.GET("/members/:id", memberController.GetMember)
	protected.POST("/members", memberController.CreateMember)
	protected.PUT("/members/:id", memberController.UpdateMember)
	protected.DELETE("/members/:id", memberController.DeleteMember)

	protected.GET("/trainers", trainerController.ListTrainers)
	protected.POST("/trainers", trainerController.CreateTrainer)
	protected.PUT("/trainers/:id", trainerController.UpdateTrainer)
	protected.DELETE("/trainers/:id", trainerController.DeleteTrainer)

	protected.GET("/packages", packageController.ListPackages)
	protected.POST("/packages", packageController.CreatePackage)
	protected.PUT("/packages/:id", packageController.UpdatePackage)
	protected.POST("/packages/:id/assign", packageController.AssignPackage)

	protected.GET("/payments", paymentController.ListPayments)
	protected.POST("/payments", paymentController.CreatePayment)
	protected.POST("/payments/:id/void", paymentController.VoidPayment)

	protected.GET("/attendance", attendanceController.ListAttendance)
	protected.POST("/attendance", attendanceController.CreateManual)
	protected.DELETE("/attendance/:id", attendanceController.DeleteAttendance)

	protected.GET("/devices", deviceController.ListDevices)
	protected.POST("/devices", deviceController.CreateDevice)
	protected.PUT("/devices/:id", deviceController.UpdateDevice)
	protected.GET("/devices/:id/mappings", deviceController.ListMappings)
	protected.POST("/devices/:id/mappings", deviceController.UpsertMapping)
	protected.POST("/devices/:id/sync", deviceController.SyncAttendance)
	protected.GET("/devices/:id/users", deviceController.ListDeviceUsers)
	protected.POST("/devices/:id/clear-logs", deviceController.ClearDeviceLogs)
	protected.GET("/devices/:id/time", deviceController.GetDeviceTime)
	protected.POST("/devices/:id/time", deviceController.SetDeviceTime)

	protected.GET("/dashboard/stats", dashboardController.Stats)
	protected.GET("/dashboard/recent-attendance", dashboardController.RecentAttendance)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
