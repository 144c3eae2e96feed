package directory

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/repository"
)

// DirectoryHandler 组织目录只读接口（员工、部门、岗位）
type DirectoryHandler struct {
	users *repository.UserRepository
}

func NewDirectoryHandler(users *repository.UserRepository) *DirectoryHandler {
	return &DirectoryHandler{users: users}
}

// ListUsers 获取员工列表，可按部门过滤
func (h *DirectoryHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Query("division_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取员工列表失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    users,
	})
}

// ListDivisions 获取部门列表
func (h *DirectoryHandler) ListDivisions(c *gin.Context) {
	divisions, err := h.users.ListDivisions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取部门列表失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    divisions,
	})
}

// ListRoles 获取岗位列表
func (h *DirectoryHandler) ListRoles(c *gin.Context) {
	roles, err := h.users.ListRoles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取岗位列表失败",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    roles,
	})
}
