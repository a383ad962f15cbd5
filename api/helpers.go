package api

import (
	"net/http"

	"logapi/internal/config"

	"github.com/gin-gonic/gin"
)

// ServiceInfo 服务元数据
type ServiceInfo struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ReadinessResponse 就绪检查响应
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServiceInfoHandler 服务元数据
// @Summary 服务信息
// @Description 返回服务名称、版本与主要端点前缀
// @Tags System
// @Produce json
// @Success 200 {object} ServiceInfo
// @Router / [get]
func ServiceInfoHandler(cfg *config.Config) gin.HandlerFunc {
	prefix := cfg.Server.APIPrefix
	info := ServiceInfo{
		Message: cfg.Server.ProjectName,
		Version: cfg.Server.Version,
		Endpoints: map[string]string{
			"auth":  prefix + "/auth",
			"users": prefix + "/users",
			"logs":  prefix + "/logs",
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}

// HealthCheck 健康检查
// @Summary 服务健康检查
// @Description 返回基础健康状态，可供监控探针使用
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Service: "log-api"})
	}
}

// ReadinessCheck 就绪检查
// @Summary 服务就绪检查
// @Description 包含数据库与 Redis 连通性结果
// @Tags System
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /ready [get]
func ReadinessCheck(container *AppContainer) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := ReadinessResponse{Status: "ready", Checks: map[string]string{}}
		status := http.StatusOK
		for name, err := range container.Ready(c.Request.Context()) {
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "not_ready"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "connected"
		}
		c.JSON(status, resp)
	}
}
