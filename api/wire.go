package api

import (
	"context"
	"fmt"
	"time"

	authHandlers "logapi/api/handlers/auth"
	logHandlers "logapi/api/handlers/logs"
	userHandlers "logapi/api/handlers/user"
	"logapi/internal/auth"
	"logapi/internal/config"
	"logapi/internal/export"
	"logapi/internal/infra"
	"logapi/internal/infra/queue"
	"logapi/internal/logentry"
	"logapi/internal/logger"
	"logapi/internal/middleware"
	"logapi/internal/user"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Infra 由进程入口创建并注入的外部连接
type Infra struct {
	DB          *gorm.DB
	RedisClient redis.UniversalClient // 可为 nil，此时 /ready 不检查 Redis
	ExportQueue queue.ExportQueue
	Store       export.ArtifactStore
}

// AppContainer 应用容器，集中管理所有服务依赖
type AppContainer struct {
	// 基础设施
	DB          *gorm.DB
	Config      *config.Config
	RedisClient redis.UniversalClient
	ExportQueue queue.ExportQueue
	Store       export.ArtifactStore

	// 认证相关
	Hasher      auth.PasswordHasher
	JWTService  *auth.JWTService
	AuthService *auth.Service

	// 核心服务
	UserService *user.Service
	LogService  *logentry.Service
	Exporter    *export.Exporter

	LoginLimiter *middleware.RateLimiter
}

// Handlers 所有 HTTP Handler
type Handlers struct {
	Auth   *authHandlers.AuthHandler
	User   *userHandlers.Handler
	Logs   *logHandlers.Handler
	Export *logHandlers.ExportHandler
}

// InitContainer 初始化应用容器
func InitContainer(cfg *config.Config, infra Infra) (*AppContainer, error) {
	if infra.DB == nil {
		return nil, fmt.Errorf("数据库未初始化")
	}
	if infra.ExportQueue == nil || infra.Store == nil {
		return nil, fmt.Errorf("导出队列或存储未初始化")
	}

	c := &AppContainer{
		DB:          infra.DB,
		Config:      cfg,
		RedisClient: infra.RedisClient,
		ExportQueue: infra.ExportQueue,
		Store:       infra.Store,
	}

	if err := c.initAuth(cfg); err != nil {
		return nil, err
	}
	c.initCoreServices(cfg)

	c.LoginLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerMinute: cfg.RateLimit.LoginPerMinute,
		BurstSize:         cfg.RateLimit.Burst,
	})
	return c, nil
}

func (c *AppContainer) initAuth(cfg *config.Config) error {
	jwtService, err := auth.NewJWTService(
		cfg.Auth.SecretKey,
		cfg.Auth.Algorithm,
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL(),
	)
	if err != nil {
		return fmt.Errorf("初始化令牌服务失败: %w", err)
	}
	c.JWTService = jwtService
	c.Hasher = &auth.BcryptHasher{Cost: bcrypt.DefaultCost}
	return nil
}

func (c *AppContainer) initCoreServices(cfg *config.Config) {
	c.UserService = user.NewService(user.NewRepository(c.DB))
	c.AuthService = auth.NewService(c.UserService, c.Hasher, c.JWTService)

	logRepo := logentry.NewRepository(c.DB)
	c.LogService = logentry.NewService(logRepo)
	c.Exporter = export.NewExporter(logRepo, c.Store, cfg.Export.PageSize, logger.Get())
}

// InitHandlers 初始化所有 Handlers
func (c *AppContainer) InitHandlers() *Handlers {
	return &Handlers{
		Auth:   authHandlers.NewAuthHandler(c.AuthService),
		User:   userHandlers.NewHandler(c.UserService, c.AuthService),
		Logs:   logHandlers.NewHandler(c.LogService),
		Export: logHandlers.NewExportHandler(c.ExportQueue, c.Exporter.Store()),
	}
}

// Ready 检查数据库与 Redis 连通性
func (c *AppContainer) Ready(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	checks := map[string]error{
		"database": infra.PingDatabase(ctx, c.DB),
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Ping(ctx).Err()
	}
	return checks
}

// Close 释放容器持有的后台资源，数据库由调用方关闭
func (c *AppContainer) Close() {
	if c.LoginLimiter != nil {
		c.LoginLimiter.Stop()
	}
	if c.ExportQueue != nil {
		if err := c.ExportQueue.Close(); err != nil {
			logger.Warn("关闭导出队列失败", zap.Error(err))
		}
	}
}
