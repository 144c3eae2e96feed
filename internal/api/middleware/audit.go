package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/audit"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
)

// OperationAudit 操作审计中间件
// 只记录变更类请求（POST/PUT/DELETE），读请求不入库
func OperationAudit(auditor audit.Auditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		userID, _ := c.Get("user_id")
		username, _ := c.Get("username")

		entry := &model.OperationLog{
			UserID:   fmt.Sprintf("%v", userID),
			Username: fmt.Sprintf("%v", username),
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			Action:   actionFromPath(c.Request.Method, c.Request.URL.Path),
			Resource: c.Param("id"),
			ClientIP: c.ClientIP(),
			Status:   c.Writer.Status(),
		}

		// 审计失败不影响响应
		_ = auditor.LogOperation(entry)
	}
}

// actionFromPath 从请求路径推断操作类型
func actionFromPath(method, path string) string {
	switch {
	case strings.HasSuffix(path, "/approve"):
		return "approve"
	case strings.HasSuffix(path, "/reject"):
		return "reject"
	case strings.HasSuffix(path, "/cancel"):
		return "cancel"
	case strings.HasSuffix(path, "/edit"):
		return "edit"
	case strings.HasSuffix(path, "/activate"):
		return "activate"
	case method == "POST":
		return "create"
	case method == "PUT":
		return "update"
	case method == "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
