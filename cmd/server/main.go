package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"logapi/api"
	docs "logapi/api/docs"
	"logapi/internal/bootstrap"
	"logapi/internal/infra"
	"logapi/internal/infra/queue"
	"logapi/internal/logger"
	"logapi/internal/metrics"
	"logapi/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title Log API
// @version 1.0.0
// @description 日志采集、查询、聚合与异步 CSV 导出服务
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, env, err := bootstrap.Init()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.Server.Port)
	docs.SwaggerInfo.Version = cfg.Server.Version
	metrics.RecordBuildInfo(cfg.Server.Version, runtime.Version())

	logger.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 数据库
	db, err := bootstrap.OpenDatabase(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		go metrics.NewDBStatsCollector(sqlDB, 15*time.Second).Run(ctx)
	}

	// 2. Redis 与导出队列
	redisClient, err := infra.NewRedis(&cfg.Redis)
	if err != nil {
		logger.Fatal("初始化 Redis 失败", zap.Error(err))
	}
	if err := infra.PingRedis(ctx, redisClient); err != nil {
		logger.Warn("Redis 暂不可用，导出任务将无法入队", zap.Error(err))
	}
	redisOpt, err := infra.AsynqConnOpt(&cfg.Redis)
	if err != nil {
		logger.Fatal("解析 Redis 配置失败", zap.Error(err))
	}
	store, err := bootstrap.ArtifactStore(ctx, cfg.Export)
	if err != nil {
		logger.Fatal("初始化导出存储失败", zap.Error(err))
	}

	// 3. 依赖容器与路由
	container, err := api.InitContainer(cfg, api.Infra{
		DB:          db,
		RedisClient: redisClient,
		ExportQueue: queue.NewExportQueue(redisOpt, cfg.Export.Queue, cfg.Export.Retention),
		Store:       store,
	})
	if err != nil {
		logger.Fatal("初始化应用容器失败", zap.Error(err))
	}

	gin.SetMode(cfg.Server.Mode)
	router := api.SetupRouter(container)

	// 4. 开发模式下在进程内运行 Worker
	var workerServer *worker.Server
	if cfg.Worker.Embedded {
		workerServer = worker.NewServer(
			redisOpt,
			cfg.Export.Queue,
			cfg.Worker.Concurrency,
			worker.Handlers(container.Exporter, logger.Get()),
			logger.Get(),
		)
		if err := workerServer.Start(); err != nil {
			logger.Fatal("Worker 服务器启动失败", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	<-ctx.Done()
	gracefulShutdown(server, workerServer, container, redisClient, db)
}

// gracefulShutdown 依次关闭 HTTP 服务、Worker 与连接
func gracefulShutdown(server *http.Server, workerServer *worker.Server, container *api.AppContainer, redisClient redis.UniversalClient, db *gorm.DB) {
	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if workerServer != nil {
		workerServer.Shutdown()
	}

	container.Close()
	if err := redisClient.Close(); err != nil {
		logger.Warn("Redis 关闭异常", zap.Error(err))
	}
	if err := infra.CloseDatabase(db); err != nil {
		logger.Error("数据库关闭异常", zap.Error(err))
	}

	logger.Info("服务器已安全关闭")
}

