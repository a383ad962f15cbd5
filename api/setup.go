package api

import (
	"net/http"

	_ "logapi/api/docs"
	"logapi/internal/common"
	"logapi/internal/metrics"
	middlewarepkg "logapi/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置并返回 Gin 路由
func SetupRouter(container *AppContainer) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// 全局中间件
	router.Use(middlewarepkg.RequestIDMiddleware())
	router.Use(Recovery())
	router.Use(RequestLogger())
	router.Use(CORS(container.Config.CORS))

	// Prometheus 指标收集中间件
	router.Use(metrics.PrometheusMiddleware())

	router.NoRoute(endpointNotFound)
	router.NoMethod(endpointNotFound)

	// 公开端点
	router.GET("/", ServiceInfoHandler(container.Config))
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(container))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	RegisterRoutes(router, container, container.InitHandlers())
	return router
}

func endpointNotFound(c *gin.Context) {
	common.Fail(c, http.StatusNotFound, common.MsgEndpointNotFound)
}
