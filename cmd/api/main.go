package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BayRex1/bayrex-apk/internal/config"
	"github.com/BayRex1/bayrex-apk/internal/database"
	"github.com/BayRex1/bayrex-apk/internal/logger"
	"github.com/BayRex1/bayrex-apk/internal/metrics"
	"github.com/BayRex1/bayrex-apk/internal/server"
	"github.com/BayRex1/bayrex-apk/internal/session"
	"github.com/BayRex1/bayrex-apk/internal/store"
)

func main() {
	// Configuration is read before the logger exists, so level and format
	// come straight from the environment.
	log := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := config.Load(log)
	log = logger.New(cfg.LogLevel, cfg.LogFormat)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Record store
	apps, db := database.OpenStore(startCtx, cfg, log)
	defer database.Close(db)

	if cfg.SeedDemo {
		n, err := store.Seed(startCtx, apps)
		if err != nil {
			log.WithError(err).Warn("Failed to seed demo apps")
		} else if n > 0 {
			log.Infof("Seeded %d demo apps", n)
		}
	}

	// File storage
	blobs := database.OpenBlobStore(startCtx, cfg, log)

	// Admin session guard
	creds, err := session.NewCredentials(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash, cfg.AdminTOTPSecret)
	if err != nil {
		log.WithError(err).Fatal("Invalid admin credentials")
	}
	sessions, closeSessions := database.OpenSessionStore(startCtx, cfg, log)
	defer closeSessions()

	secret := database.EnsureSessionSecret(db, cfg, log)
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	guard := session.NewGuard(creds, sessions, secret, ttl)
	if guard.TOTPEnabled() {
		log.Info("Two-factor authentication enabled for admin login")
	}

	app := server.New(server.Deps{
		Config:  cfg,
		Log:     log,
		Store:   apps,
		Blobs:   blobs,
		Guard:   guard,
		Metrics: metrics.New(),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.WithError(err).Warn("Shutdown did not complete cleanly")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithFields(logrus.Fields{
		"addr":    addr,
		"env":     cfg.AppEnv,
		"uploads": cfg.UploadsPath,
	}).Info("Starting BayRex APK server")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
