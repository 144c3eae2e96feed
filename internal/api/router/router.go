package router

import (
	"github.com/gin-gonic/gin"
	auditapi "github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/audit"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/auth"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/directory"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/flow"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/handler/request"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/middleware"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/audit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	authHandler *auth.AuthHandler,
	flowHandler *flow.FlowHandler,
	requestHandler *request.RequestHandler,
	directoryHandler *directory.DirectoryHandler,
	auditHandler *auditapi.AuditHandler,
	auditor audit.Auditor,
	mode string,
) *gin.Engine {
	gin.SetMode(mode)

	r := gin.New()

	// 使用自定义的 recovery 中间件（打印详细错误信息）
	r.Use(middleware.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 公开API（不需要认证）
	api := r.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// 需要认证的API
	authenticated := api.Group("")
	authenticated.Use(middleware.JWTAuth())
	authenticated.Use(middleware.OperationAudit(auditor))
	{
		authenticated.GET("/auth/me", authHandler.Me)

		// 组织目录（审批流配置页使用）
		authenticated.GET("/users", directoryHandler.ListUsers)
		authenticated.GET("/divisions", directoryHandler.ListDivisions)
		authenticated.GET("/roles", directoryHandler.ListRoles)

		// 审批流模板
		flows := authenticated.Group("/flows")
		{
			flows.GET("", flowHandler.ListFlows)
			flows.POST("", flowHandler.CreateFlow)
			flows.GET("/:id", flowHandler.GetFlow)
			flows.PUT("/:id", flowHandler.UpdateFlow)
			flows.DELETE("/:id", flowHandler.DeleteFlow)
			flows.POST("/:id/activate", flowHandler.ActivateFlow) // 激活后该部门其他模板自动停用
		}

		// CSW 申请
		requests := authenticated.Group("/requests")
		{
			requests.GET("", requestHandler.ListRequests)
			requests.POST("", requestHandler.CreateRequest)
			requests.GET("/stats", requestHandler.GetStats)
			requests.GET("/:id", requestHandler.GetRequest)
			requests.GET("/:id/history", requestHandler.GetRequestHistory)
			requests.DELETE("/:id", requestHandler.DeleteRequest)
			requests.POST("/:id/approve", requestHandler.ApproveRequest)
			requests.POST("/:id/reject", requestHandler.RejectRequest)
			requests.POST("/:id/cancel", requestHandler.CancelRequest)
			requests.PUT("/:id/edit", requestHandler.EditRequest)
		}

		// 操作日志
		authenticated.GET("/audit/operations", auditHandler.ListOperations)
	}

	return r
}
