package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"logapi/internal/logentry"
	"logapi/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ExportRunner 导出执行器抽象，便于注入 mock
type ExportRunner interface {
	Export(ctx context.Context, filter logentry.Filter, jobID string) (string, error)
}

type ExportHandler struct {
	runner ExportRunner
	logger *zap.Logger
}

func NewExportHandler(runner ExportRunner, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		runner: runner,
		logger: logger,
	}
}

// HandleExportLogsCSV 导出结果位置写入任务结果
func (h *ExportHandler) HandleExportLogsCSV(ctx context.Context, t *asynq.Task) error {
	var p tasks.ExportLogsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	jobID, _ := asynq.GetTaskID(ctx)
	h.logger.Info("开始执行导出任务",
		zap.String("job_id", jobID),
		zap.String("severity", p.Severity),
		zap.String("source", p.Source),
	)

	location, err := h.runner.Export(ctx, p.Filter(), jobID)
	if err != nil {
		return err
	}

	if rw := t.ResultWriter(); rw != nil {
		if _, err := rw.Write([]byte(location)); err != nil {
			return fmt.Errorf("写入任务结果失败: %w", err)
		}
	}
	return nil
}
