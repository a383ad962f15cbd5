package api

import (
	"logapi/internal/auth"
	middlewarepkg "logapi/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	apiV1 := router.Group(container.Config.Server.APIPrefix)

	registerAuthRoutes(apiV1, container, handlers)
	registerUserRoutes(apiV1, handlers)
	registerLogRoutes(apiV1, handlers)
}

// registerAuthRoutes 注册认证相关路由，仅 profile 需要令牌
func registerAuthRoutes(api *gin.RouterGroup, c *AppContainer, h *Handlers) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", middlewarepkg.RateLimitMiddleware(c.LoginLimiter), h.Auth.Login)
		authGroup.GET("/profile", auth.AuthMiddleware(c.AuthService), h.Auth.Profile)
	}
}

func registerUserRoutes(api *gin.RouterGroup, h *Handlers) {
	users := api.Group("/users")
	{
		users.POST("", h.User.Create)
		users.GET("", h.User.List)
		users.GET("/:id", h.User.Get)
		users.PATCH("/:id", h.User.Update)
		users.DELETE("/:id", h.User.Delete)
	}
}

func registerLogRoutes(api *gin.RouterGroup, h *Handlers) {
	logs := api.Group("/logs")
	{
		logs.POST("", h.Logs.Create)
		logs.GET("", h.Logs.List)
		logs.GET("/aggregate/by/:field", h.Logs.Aggregate)

		// 导出
		logs.POST("/export", h.Export.Enqueue)
		logs.GET("/export/:job_id", h.Export.Status)
		logs.GET("/export/:job_id/download", h.Export.Download)

		logs.GET("/:id", h.Logs.Get)
		logs.PATCH("/:id", h.Logs.Update)
		logs.DELETE("/:id", h.Logs.Delete)
	}
}
