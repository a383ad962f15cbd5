package main

import (
	"context"
	"fmt"
	"os"

	"logapi/internal/bootstrap"
	"logapi/internal/export"
	"logapi/internal/infra"
	"logapi/internal/logentry"
	"logapi/internal/logger"
	"logapi/internal/worker"

	"go.uber.org/zap"
)

// 独立的导出 Worker 进程，消费 export.queue
func main() {
	cfg, env, err := bootstrap.Init()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := bootstrap.OpenDatabase(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase(db)

	redisOpt, err := infra.AsynqConnOpt(&cfg.Redis)
	if err != nil {
		logger.Fatal("解析 Redis 配置失败", zap.Error(err))
	}
	store, err := bootstrap.ArtifactStore(ctx, cfg.Export)
	if err != nil {
		logger.Fatal("初始化导出存储失败", zap.Error(err))
	}

	exporter := export.NewExporter(logentry.NewRepository(db), store, cfg.Export.PageSize, logger.Get())
	srv := worker.NewServer(
		redisOpt,
		cfg.Export.Queue,
		cfg.Worker.Concurrency,
		worker.Handlers(exporter, logger.Get()),
		logger.Get(),
	)

	logger.Info("导出 Worker 启动",
		zap.String("env", env),
		zap.String("queue", cfg.Export.Queue),
		zap.Int("concurrency", cfg.Worker.Concurrency),
	)
	// Run 内部处理 SIGINT/SIGTERM
	if err := srv.Run(); err != nil {
		logger.Fatal("Worker 服务器异常退出", zap.Error(err))
	}
}
