package app

import (
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/repository"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/database"
)

// Repositories 包含所有 Repository 实例
type Repositories struct {
	User    *repository.UserRepository
	Flow    *repository.FlowRepository
	Request *repository.RequestRepository
}

// InitializeRepositories 初始化所有 Repository
func InitializeRepositories() *Repositories {
	return &Repositories{
		User:    repository.NewUserRepository(database.DB),
		Flow:    repository.NewFlowRepository(database.DB),
		Request: repository.NewRequestRepository(database.DB),
	}
}
