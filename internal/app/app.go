package app

import (
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/audit"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/database"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/logger"
)

// App 应用程序上下文
type App struct {
	Config   *config.Config
	Repos    *Repositories
	Services *Services
	Handlers *Handlers
	Auditor  *audit.DatabaseAuditor
}

// Initialize 初始化应用程序
func Initialize(cfgPath string) (*App, error) {
	cfg, err := Bootstrap(cfgPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			database.Close()
		}
	}()

	repos := InitializeRepositories()
	logger.Infof("Repositories initialized")

	services := InitializeServices(repos, cfg)
	logger.Infof("Services initialized")

	auditor := audit.NewDatabaseAuditor(database.DB)
	logger.Infof("Audit service initialized")

	handlers := InitializeHandlers(repos, services, auditor, cfg)
	logger.Infof("Handlers initialized")

	return &App{
		Config:   cfg,
		Repos:    repos,
		Services: services,
		Handlers: handlers,
		Auditor:  auditor,
	}, nil
}
