package main

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cppla/gymkit/config"
	"github.com/cppla/gymkit/devicesync"
	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/routes"
	"github.com/cppla/gymkit/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.Tenant{},
		&models.StaffUser{},
		&models.Trainer{},
		&models.Member{},
		&models.GymPackage{},
		&models.Membership{},
		&models.Payment{},
		&models.AttendanceRecord{},
		&models.Device{},
		&models.DeviceUserMapping{},
	)

	r := routes.SetupRouter(db)

	// Nightly sweep closes sessions that never saw a check-out.
	c := cron.New()
	if _, err := c.AddFunc(cfg.CloserSchedule, func() {
		closed, err := devicesync.CloseStaleOpenSessions(db, 0, time.Now())
		if err != nil {
			utils.Sugar.Errorf("stale session sweep failed: %v", err)
			return
		}
		if closed > 0 {
			utils.Sugar.Infof("stale session sweep closed %d sessions", closed)
		}
	}); err != nil {
		utils.Sugar.Fatalf("invalid closer schedule %q: %v", cfg.CloserSchedule, err)
	}
	c.Start()
	defer c.Stop()

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
