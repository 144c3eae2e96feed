package request

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/repository"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/service/approval"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestHandler CSW 申请处理器
type RequestHandler struct {
	workflow *approval.WorkflowService
	requests *repository.RequestRepository
}

func NewRequestHandler(workflow *approval.WorkflowService, requests *repository.RequestRepository) *RequestHandler {
	return &RequestHandler{
		workflow: workflow,
		requests: requests,
	}
}

// CreateRequest 创建申请（触发审批链解析）
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req struct {
		Category    string         `json:"category" binding:"required"`
		Situation   string         `json:"situation" binding:"required"`
		Information string         `json:"information"`
		Solution    string         `json:"solution"`
		Attachments datatypes.JSON `json:"attachments"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误",
			"error":   err.Error(),
		})
		return
	}

	created, err := h.workflow.Create(approval.CreateInput{
		RequesterID: c.GetString("user_id"),
		Category:    req.Category,
		Situation:   req.Situation,
		Information: req.Information,
		Solution:    req.Solution,
		Attachments: req.Attachments,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    created,
	})
}

// GetRequest 获取申请详情（含审批链和审计历史）
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id := c.Param("id")

	req, err := h.requests.GetRequest(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "申请不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取申请失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    req,
	})
}

// GetRequestHistory 获取申请的审计历史（只读视图）
func (h *RequestHandler) GetRequestHistory(c *gin.Context) {
	id := c.Param("id")

	req, err := h.requests.GetRequest(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "申请不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取申请失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"request_number": req.RequestNumber,
			"history":        req.History,
			"total":          len(req.History),
		},
	})
}

// ListRequests 获取申请列表
// role=my: 我的申请; role=approve: 待我审批; 其他: 全部（可按部门过滤）
func (h *RequestHandler) ListRequests(c *gin.Context) {
	userID := c.GetString("user_id")
	role := c.Query("role")
	status := c.Query("status")
	category := c.Query("category")
	page := parseIntDefault(c.Query("page"), 1)
	pageSize := parseIntDefault(c.Query("page_size"), 20)

	var (
		requests []model.CSWRequest
		total    int64
		err      error
	)

	switch role {
	case "my":
		requests, total, err = h.requests.ListByRequester(userID, status, category, page, pageSize)
	case "approve":
		requests, total, err = h.requests.ListPendingForApprover(userID, page, pageSize)
	default:
		requests, total, err = h.requests.ListRequests(c.Query("division_id"), status, category, page, pageSize)
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取申请列表失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"requests": requests,
			"total":    total,
		},
	})
}

// ApproveRequest 批准当前级别
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Level   int    `json:"level" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误",
			"error":   err.Error(),
		})
		return
	}

	updated, err := h.workflow.Approve(id, c.GetString("user_id"), req.Level, req.Comment)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    updated,
	})
}

// RejectRequest 拒绝当前级别（意见必填，整体状态立即变为 rejected）
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Level   int    `json:"level" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误",
			"error":   err.Error(),
		})
		return
	}

	updated, err := h.workflow.Reject(id, c.GetString("user_id"), req.Level, req.Comment)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    updated,
	})
}

// CancelRequest 申请人取消申请
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Comment string `json:"comment"`
	}
	// 取消意见可选，body 可为空
	_ = c.ShouldBindJSON(&req)

	updated, err := h.workflow.Cancel(id, c.GetString("user_id"), req.Comment)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    updated,
	})
}

// EditRequest 申请人编辑被拒绝的申请，整条审批链重置后重新进入审批
func (h *RequestHandler) EditRequest(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Category    string         `json:"category"`
		Situation   string         `json:"situation" binding:"required"`
		Information string         `json:"information"`
		Solution    string         `json:"solution"`
		Attachments datatypes.JSON `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误",
			"error":   err.Error(),
		})
		return
	}

	updated, err := h.workflow.Edit(id, c.GetString("user_id"), approval.EditInput{
		Category:    req.Category,
		Situation:   req.Situation,
		Information: req.Information,
		Solution:    req.Solution,
		Attachments: req.Attachments,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    updated,
	})
}

// DeleteRequest 软删除申请（审计历史保留）
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	id := c.Param("id")

	if err := h.requests.SoftDelete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "删除申请失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
	})
}

// GetStats 仪表盘统计：各状态数量 + 待我审批数量
func (h *RequestHandler) GetStats(c *gin.Context) {
	counts, err := h.requests.CountByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取统计失败",
			"error":   err.Error(),
		})
		return
	}

	pendingForMe, err := h.requests.CountPendingForApprover(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取统计失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"by_status":      counts,
			"pending_for_me": pendingForMe,
		},
	})
}

// respondWorkflowError 把审批引擎的类型化错误映射为 HTTP 响应
// 配置/状态类 400，授权类 403，未找到 404，并发冲突 409
func respondWorkflowError(c *gin.Context, err error) {
	var approverNotFound *approval.ApproverNotFoundError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "申请不存在"})
	case errors.Is(err, approval.ErrLevelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "审批级别不存在", "error": err.Error()})
	case errors.Is(err, approval.ErrNotApprover), errors.Is(err, approval.ErrNotRequester):
		c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "没有权限执行该操作", "error": err.Error()})
	case errors.Is(err, approval.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"code": 409, "message": "申请正在被其他操作修改，请稍后重试", "error": err.Error()})
	case errors.Is(err, approval.ErrNoActiveFlow):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "部门未配置激活的审批流", "error": err.Error()})
	case errors.As(err, &approverNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "审批级别找不到审批人", "error": err.Error()})
	case errors.Is(err, approval.ErrEmptyChain),
		errors.Is(err, approval.ErrNotPending),
		errors.Is(err, approval.ErrWrongLevel),
		errors.Is(err, approval.ErrAlreadyDecided),
		errors.Is(err, approval.ErrNotRejected),
		errors.Is(err, approval.ErrAlreadyApproved),
		errors.Is(err, approval.ErrAlreadyCancelled),
		errors.Is(err, approval.ErrCommentRequired),
		errors.Is(err, approval.ErrFieldTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "操作不符合当前申请状态", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "操作失败", "error": err.Error()})
	}
}

// parseIntDefault 解析整数参数，失败返回默认值
func parseIntDefault(val string, def int) int {
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
