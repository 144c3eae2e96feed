package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/api/middleware"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/repository"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler 登录认证处理器
type AuthHandler struct {
	users *repository.UserRepository
	cfg   *config.SecurityConfig
}

func NewAuthHandler(users *repository.UserRepository, cfg *config.SecurityConfig) *AuthHandler {
	return &AuthHandler{
		users: users,
		cfg:   cfg,
	}
}

// Login 用户登录，签发 JWT（同时写入 cookie 供 Web 前端使用）
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请求参数错误",
			"error":   err.Error(),
		})
		return
	}

	user, err := h.users.FindUserByUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "用户名或密码错误",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "用户名或密码错误",
		})
		return
	}

	expiresAt := time.Now().Add(time.Duration(h.cfg.SessionTimeout) * time.Second)
	claims := middleware.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		RoleID:   user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成令牌失败",
			"error":   err.Error(),
		})
		return
	}

	c.SetCookie("token", tokenString, h.cfg.SessionTimeout, "/", "", false, true)
	logger.Infof("User %s logged in", user.Username)

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"token":      tokenString,
			"expires_at": expiresAt,
			"user": gin.H{
				"id":          user.ID,
				"username":    user.Username,
				"name":        user.Name,
				"title":       user.Title,
				"role_id":     user.RoleID,
				"division_id": user.DivisionID,
			},
		},
	})
}

// Me 返回当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("user_id")

	user, err := h.users.FindUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "用户不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    user,
	})
}
