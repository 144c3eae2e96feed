package app

import (
	"log"
	"os"

	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/database"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/logger"
	pkgredis "github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/redis"
)

// Bootstrap 初始化基础设施（logger, database, redis）
func Bootstrap(cfgPath string) (*config.Config, error) {
	// 支持通过环境变量指定配置文件路径
	if cfgPath == "" {
		cfgPath = os.Getenv("RH_CONFIG")
		if cfgPath == "" {
			cfgPath = "config/config.yaml"
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	logger.Infof("Database initialized successfully")

	// Redis 可选，用于审批流激活的分布式锁
	if err := pkgredis.Init(&cfg.Redis); err != nil {
		logger.Warnf("Redis initialization failed: %v", err)
		logger.Info("   → Flow activation will rely on database row locks only")
	} else if cfg.Redis.Enabled {
		logger.Infof("Redis initialized successfully - distributed locks enabled")
	} else {
		logger.Info("Redis is disabled in config - using database mode")
	}

	return cfg, nil
}
