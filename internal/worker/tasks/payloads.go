package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"logapi/internal/logentry"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeExportLogsCSV = "export:logs_csv"
)

// ExportLogsPayload CSV 导出任务载荷，字段与日志列表过滤条件一致
type ExportLogsPayload struct {
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Severity string     `json:"severity,omitempty"`
	Source   string     `json:"source,omitempty"`
}

// NewExportLogsPayload 从过滤条件构造载荷
func NewExportLogsPayload(f logentry.Filter) ExportLogsPayload {
	return ExportLogsPayload{Start: f.Start, End: f.End, Severity: f.Severity, Source: f.Source}
}

// Filter 还原为日志过滤条件
func (p ExportLogsPayload) Filter() logentry.Filter {
	return logentry.Filter{Start: p.Start, End: p.End, Severity: p.Severity, Source: p.Source}
}

// NewExportLogsTask 导出任务不重试，完成后结果保留 retention
func NewExportLogsTask(p ExportLogsPayload, queue string, retention time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("序列化导出任务失败: %w", err)
	}
	return asynq.NewTask(TypeExportLogsCSV, payload,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Retention(retention),
	), nil
}
