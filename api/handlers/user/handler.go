package user

import (
	"errors"
	"net/http"
	"strings"

	request "logapi/api/handlers/common"
	"logapi/internal/auth"
	"logapi/internal/common"
	"logapi/internal/user"

	"github.com/gin-gonic/gin"
)

// 响应消息
const (
	MsgUserCreated   = "User created"
	MsgUserFetched   = "User fetched"
	MsgUsersFetched  = "Users fetched"
	MsgUserUpdated   = "User updated"
	MsgUserDeleted   = "User deleted"
	MsgUserNotFound  = "User not found"
	MsgUsernameTaken = "Username already exists"
)

// Handler 用户管理 Handler
type Handler struct {
	users    *user.Service
	accounts *auth.Service
}

// NewHandler 创建 Handler，新建用户的密码哈希由 accounts 完成
func NewHandler(users *user.Service, accounts *auth.Service) *Handler {
	return &Handler{users: users, accounts: accounts}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=256"`
	Name     string `json:"name" binding:"max=100"`
	Email    string `json:"email" binding:"required,email"`
}

func (r *CreateUserRequest) Validate() []common.FieldError {
	if strings.Contains(r.Username, " ") {
		return []common.FieldError{{Field: "username", Message: "username must not contain spaces"}}
	}
	return nil
}

// UpdateUserRequest 部分更新，未提供的字段保持不变
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

// ListUsersQuery 用户列表查询参数
type ListUsersQuery struct {
	Search    string `form:"search"`
	Status    string `form:"status"`
	RoleAdmin string `form:"role_admin"`
	Limit     int    `form:"limit,default=100" binding:"gte=1,lte=1000"`
	Offset    int    `form:"offset,default=0" binding:"gte=0"`

	active *bool
	admin  *bool
}

// Validate 解析布尔过滤参数
func (q *ListUsersQuery) Validate() []common.FieldError {
	var statusErr, adminErr *common.FieldError
	q.active, statusErr = request.ParseBool("status", q.Status)
	q.admin, adminErr = request.ParseBool("role_admin", q.RoleAdmin)
	return request.Collect(statusErr, adminErr)
}

// UserData 单个用户
type UserData struct {
	User *user.User `json:"user"`
}

// UserListData 用户列表
type UserListData struct {
	Users  []user.User `json:"users"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// Create 创建用户
// @Summary 创建用户
// @Tags Users
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "用户信息"
// @Success 201 {object} common.Envelope[UserData]
// @Failure 409 {object} common.NoData "用户名已存在"
// @Failure 422 {object} common.Envelope[common.ValidationErrors]
// @Router /api/v1/users [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !request.BindJSON(c, &req) {
		return
	}

	created, err := h.accounts.Register(c.Request.Context(), auth.RegisterParams{
		Username: req.Username,
		Password: req.Password,
		Name:     request.OptionalString(req.Name),
		Email:    request.OptionalString(req.Email),
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateUsername) {
			common.Fail(c, http.StatusConflict, MsgUsernameTaken)
			return
		}
		common.InternalError(c, err)
		return
	}
	common.Success(c, http.StatusCreated, MsgUserCreated, UserData{User: created})
}

// Get 获取用户
// @Summary 获取用户
// @Tags Users
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} common.Envelope[UserData]
// @Failure 404 {object} common.NoData
// @Router /api/v1/users/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := request.ParseID(c, "id")
	if !ok {
		return
	}

	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		common.InternalError(c, err)
		return
	}
	if u == nil {
		common.Fail(c, http.StatusNotFound, MsgUserNotFound)
		return
	}
	common.Success(c, http.StatusOK, MsgUserFetched, UserData{User: u})
}

// List 用户列表
// @Summary 用户列表
// @Description 按用户名、姓名或邮箱模糊搜索，按 id 升序分页
// @Tags Users
// @Produce json
// @Param search query string false "搜索关键字"
// @Param status query bool false "是否启用"
// @Param role_admin query bool false "是否管理员"
// @Param limit query int false "每页数量" default(100)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} common.Envelope[UserListData]
// @Router /api/v1/users [get]
func (h *Handler) List(c *gin.Context) {
	var q ListUsersQuery
	if !request.BindQuery(c, &q) {
		return
	}

	users, total, err := h.users.List(c.Request.Context(), user.ListQuery{
		Search: q.Search,
		Active: q.active,
		Admin:  q.admin,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		common.InternalError(c, err)
		return
	}
	common.Success(c, http.StatusOK, MsgUsersFetched, UserListData{
		Users:  users,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

// Update 更新用户
// @Summary 更新用户
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "用户ID"
// @Param request body UpdateUserRequest true "待更新字段"
// @Success 200 {object} common.Envelope[UserData]
// @Failure 404 {object} common.NoData
// @Router /api/v1/users/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	id, ok := request.ParseID(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !request.BindJSON(c, &req) {
		return
	}

	updated, err := h.users.Update(c.Request.Context(), id, user.UpdateParams{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		common.InternalError(c, err)
		return
	}
	if updated == nil {
		common.Fail(c, http.StatusNotFound, MsgUserNotFound)
		return
	}
	common.Success(c, http.StatusOK, MsgUserUpdated, UserData{User: updated})
}

// Delete 删除用户
// @Summary 删除用户
// @Tags Users
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} common.NoData
// @Failure 404 {object} common.NoData
// @Router /api/v1/users/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.ParseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		common.InternalError(c, err)
		return
	}
	if !deleted {
		common.Fail(c, http.StatusNotFound, MsgUserNotFound)
		return
	}
	common.SuccessNoData(c, MsgUserDeleted)
}
