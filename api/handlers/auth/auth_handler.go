package auth

import (
	"errors"
	"net/http"
	"strings"

	request "logapi/api/handlers/common"
	"logapi/internal/auth"
	"logapi/internal/common"
	"logapi/internal/logger"
	"logapi/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 响应消息
const (
	MsgRegistered         = "User registered"
	MsgLoginSuccessful    = "Login successful"
	MsgProfileFetched     = "Profile fetched"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUsernameTaken      = "Username already exists"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	service *auth.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=256"`
	Name     string `json:"name" binding:"max=100"`
	Email    string `json:"email" binding:"required,email"`
}

// Validate 用户名不能包含空格
func (r *RegisterRequest) Validate() []common.FieldError {
	if strings.Contains(r.Username, " ") {
		return []common.FieldError{{Field: "username", Message: "username must not contain spaces"}}
	}
	return nil
}

// LoginRequest 登录表单
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenInfo 访问令牌
type TokenInfo struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserData 单个用户
type UserData struct {
	User *user.User `json:"user"`
}

// LoginData 登录响应
type LoginData struct {
	Token TokenInfo  `json:"token"`
	User  *user.User `json:"user"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建新用户账号，用户名不能重复
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册请求参数"
// @Success 201 {object} common.Envelope[UserData]
// @Failure 409 {object} common.NoData "用户名已存在"
// @Failure 422 {object} common.Envelope[common.ValidationErrors] "参数错误"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !request.BindJSON(c, &req) {
		return
	}

	created, err := h.service.Register(c.Request.Context(), auth.RegisterParams{
		Username: req.Username,
		Password: req.Password,
		Name:     request.OptionalString(req.Name),
		Email:    request.OptionalString(req.Email),
	})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateUsername) {
			common.Fail(c, http.StatusConflict, MsgUsernameTaken)
			return
		}
		common.InternalError(c, err)
		return
	}

	logger.WithContext(c.Request.Context()).Info("用户注册成功",
		zap.Uint("user_id", created.ID),
		zap.String("username", created.Username),
	)
	common.Success(c, http.StatusCreated, MsgRegistered, UserData{User: created})
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用用户名和密码登录，获取 Bearer 访问令牌
// @Tags Auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "用户名"
// @Param password formData string true "密码"
// @Success 200 {object} common.Envelope[LoginData]
// @Failure 401 {object} common.NoData "认证失败"
// @Failure 429 {object} common.NoData "请求过于频繁"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !request.BindForm(c, &req) {
		return
	}

	ctx := c.Request.Context()
	u, err := h.service.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.WithContext(ctx).Warn("登录失败", zap.String("username", req.Username))
			c.Header("WWW-Authenticate", "Bearer")
			common.Fail(c, http.StatusUnauthorized, MsgInvalidCredentials)
			return
		}
		common.InternalError(c, err)
		return
	}

	token, err := h.service.CreateToken(u.Username)
	if err != nil {
		common.InternalError(c, err)
		return
	}
	if err := h.service.RecordLogin(ctx, u); err != nil {
		common.InternalError(c, err)
		return
	}

	common.Success(c, http.StatusOK, MsgLoginSuccessful, LoginData{
		Token: TokenInfo{AccessToken: token, TokenType: auth.TokenType},
		User:  u,
	})
}

// Profile 当前用户资料
// @Summary 获取当前用户资料
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} common.Envelope[UserData]
// @Failure 401 {object} common.NoData "令牌无效或已过期"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, common.MsgInvalidToken)
		return
	}
	common.Success(c, http.StatusOK, MsgProfileFetched, UserData{User: u})
}
