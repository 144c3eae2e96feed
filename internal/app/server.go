package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/router"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/database"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/logger"
	pkgredis "github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/redis"
)

// StartServer 启动 HTTP 服务器，阻塞直到收到退出信号
func StartServer(application *App) {
	r := router.Setup(
		application.Handlers.Auth,
		application.Handlers.Flow,
		application.Handlers.Request,
		application.Handlers.Directory,
		application.Handlers.Audit,
		application.Auditor,
		application.Config.Server.Mode,
	)

	addr := fmt.Sprintf(":%d", application.Config.Server.APIPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	printStartupBanner(application.Config)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Infof("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("  → Stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Infof("  Warning: HTTP server shutdown error: %v", err)
	}

	logger.Infof("  → Closing Redis connection...")
	if err := pkgredis.Close(); err != nil {
		logger.Infof("  Warning: Redis close error: %v", err)
	}

	logger.Infof("  → Closing database connection...")
	if err := database.Close(); err != nil {
		logger.Infof("  Warning: database close error: %v", err)
	}

	logger.Sync()
	logger.Infof("Shutdown complete")
}

func printStartupBanner(cfg *config.Config) {
	logger.Infof("========================================")
	logger.Infof("  RH Unlimitech Cloud - Approval Engine")
	logger.Infof("  API listening on :%d (mode: %s)", cfg.Server.APIPort, cfg.Server.Mode)
	logger.Infof("========================================")
}
