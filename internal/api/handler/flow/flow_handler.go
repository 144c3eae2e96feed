package flow

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/repository"
	"gorm.io/gorm"
)

// FlowHandler 审批流模板管理处理器
type FlowHandler struct {
	flows *repository.FlowRepository
}

func NewFlowHandler(flows *repository.FlowRepository) *FlowHandler {
	return &FlowHandler{flows: flows}
}

// ListFlows 获取模板列表（可按部门过滤）
func (h *FlowHandler) ListFlows(c *gin.Context) {
	divisionID := c.Query("division_id")

	flows, err := h.flows.ListFlows(divisionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取审批流列表失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"flows": flows,
			"total": len(flows),
		},
	})
}

// GetFlow 获取模板详情
func (h *FlowHandler) GetFlow(c *gin.Context) {
	id := c.Param("id")

	flow, err := h.flows.GetFlow(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "审批流不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取审批流失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    flow,
	})
}

// CreateFlow 创建模板
func (h *FlowHandler) CreateFlow(c *gin.Context) {
	var req struct {
		DivisionID string               `json:"division_id" binding:"required"`
		Name       string               `json:"name" binding:"required"`
		Levels     model.FlowLevelArray `json:"levels" binding:"required"`
		IsDefault  bool                 `json:"is_default"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误",
			"error":   err.Error(),
		})
		return
	}

	flow := &model.ApprovalFlow{
		DivisionID: req.DivisionID,
		Name:       req.Name,
		Levels:     req.Levels,
		IsDefault:  req.IsDefault,
		CreatedBy:  c.GetString("user_id"),
	}

	if err := h.flows.SaveFlow(flow); err != nil {
		if errors.Is(err, model.ErrInvalidLevelSequence) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "级别顺序必须是从1开始的连续序列",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建审批流失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    flow,
	})
}

// UpdateFlow 更新模板（名称/级别/默认标记；激活状态走 ActivateFlow）
func (h *FlowHandler) UpdateFlow(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Name      string               `json:"name" binding:"required"`
		Levels    model.FlowLevelArray `json:"levels" binding:"required"`
		IsDefault bool                 `json:"is_default"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误",
			"error":   err.Error(),
		})
		return
	}

	flow, err := h.flows.GetFlow(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "审批流不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取审批流失败",
			"error":   err.Error(),
		})
		return
	}

	flow.Name = req.Name
	flow.Levels = req.Levels
	flow.IsDefault = req.IsDefault

	if err := h.flows.SaveFlow(flow); err != nil {
		if errors.Is(err, model.ErrInvalidLevelSequence) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "级别顺序必须是从1开始的连续序列",
				"error":   err.Error(),
			})
			return
		}
		// 模板在校验后被并发删除
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "审批流不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "更新审批流失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    flow,
	})
}

// ActivateFlow 激活模板（同部门其他激活模板在同一事务内取消激活）
func (h *FlowHandler) ActivateFlow(c *gin.Context) {
	id := c.Param("id")

	if err := h.flows.ActivateFlow(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": "审批流不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "激活审批流失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
	})
}

// DeleteFlow 软删除模板
func (h *FlowHandler) DeleteFlow(c *gin.Context) {
	id := c.Param("id")

	if err := h.flows.DeleteFlow(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "删除审批流失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
	})
}
