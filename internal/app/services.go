package app

import (
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/service/approval"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
)

// Services 包含所有业务服务实例
type Services struct {
	Resolver *approval.ChainResolver
	Workflow *approval.WorkflowService
}

// InitializeServices 初始化所有业务服务
func InitializeServices(repos *Repositories, cfg *config.Config) *Services {
	resolver := approval.NewChainResolver(repos.Flow, repos.User)
	workflow := approval.NewWorkflowService(repos.Request, resolver, repos.User, cfg.Approval)

	return &Services{
		Resolver: resolver,
		Workflow: workflow,
	}
}
