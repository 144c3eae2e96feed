package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/audit"
)

// AuditHandler 操作日志处理器
type AuditHandler struct {
	auditor audit.Auditor
}

func NewAuditHandler(auditor audit.Auditor) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

// ListOperations 获取操作日志列表
func (h *AuditHandler) ListOperations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	logs, total, err := h.auditor.ListOperations(c.Query("user_id"), c.Query("action"), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取操作日志失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"logs":  logs,
			"total": total,
		},
	})
}
