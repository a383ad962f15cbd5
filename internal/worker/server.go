package worker

import (
	"context"

	"logapi/internal/export"
	"logapi/internal/worker/handlers"
	"logapi/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Handlers 任务类型到处理函数的分发表
func Handlers(exporter *export.Exporter, logger *zap.Logger) map[string]asynq.HandlerFunc {
	exportHandler := handlers.NewExportHandler(exporter, logger)
	return map[string]asynq.HandlerFunc{
		tasks.TypeExportLogsCSV: exportHandler.HandleExportLogsCSV,
	}
}

type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewServer 只消费 queue 指定的队列
func NewServer(
	redisOpt asynq.RedisConnOpt,
	queue string,
	concurrency int,
	dispatch map[string]asynq.HandlerFunc,
	logger *zap.Logger,
) *Server {
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				id, _ := asynq.GetTaskID(ctx)
				logger.Error("任务执行失败",
					zap.String("type", task.Type()),
					zap.String("task_id", id),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	for kind, fn := range dispatch {
		mux.HandleFunc(kind, fn)
	}

	return &Server{
		server: srv,
		mux:    mux,
		logger: logger,
	}
}

// Run 启动 Worker 服务器，阻塞直到收到退出信号
func (s *Server) Run() error {
	s.logger.Info("Worker 服务器启动中...")
	return s.server.Run(s.mux)
}

// Start 非阻塞启动
func (s *Server) Start() error {
	s.logger.Info("Worker 服务器启动中 (后台)...")
	return s.server.Start(s.mux)
}

// Shutdown 停止 Worker 服务器
func (s *Server) Shutdown() {
	s.logger.Info("Worker 服务器停止中...")
	s.server.Shutdown()
}
