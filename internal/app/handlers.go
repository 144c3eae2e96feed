package app

import (
	auditapi "github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/audit"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/auth"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/directory"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/flow"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/request"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/audit"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
)

// Handlers 包含所有 HTTP Handler 实例
type Handlers struct {
	Auth      *auth.AuthHandler
	Flow      *flow.FlowHandler
	Request   *request.RequestHandler
	Directory *directory.DirectoryHandler
	Audit     *auditapi.AuditHandler
}

// InitializeHandlers 初始化所有 HTTP Handler
func InitializeHandlers(repos *Repositories, services *Services, auditor audit.Auditor, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:      auth.NewAuthHandler(repos.User, &cfg.Security),
		Flow:      flow.NewFlowHandler(repos.Flow),
		Request:   request.NewRequestHandler(services.Workflow, repos.Request),
		Directory: directory.NewDirectoryHandler(repos.User),
		Audit:     auditapi.NewAuditHandler(auditor),
	}
}
