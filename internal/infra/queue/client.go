package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"logapi/internal/logentry"
	"logapi/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// ErrJobNotFound 任务不存在或结果已过保留期
var ErrJobNotFound = errors.New("queue: job not found")

// JobStatus 对外暴露的任务状态
type JobStatus string

const (
	StatusPending  JobStatus = "pending"
	StatusFinished JobStatus = "finished"
	StatusFailed   JobStatus = "failed"
)

// JobInfo 任务状态与结果
type JobInfo struct {
	ID     string
	Status JobStatus
	// Result 完成时为导出文件位置
	Result string
}

// ExportQueue 导出任务队列
type ExportQueue interface {
	EnqueueExport(ctx context.Context, filter logentry.Filter) (string, error)
	ExportStatus(ctx context.Context, jobID string) (*JobInfo, error)
	Close() error
}

type asynqExportQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	retention time.Duration
}

// NewExportQueue 基于 asynq 的导出队列
func NewExportQueue(redisOpt asynq.RedisConnOpt, queue string, retention time.Duration) ExportQueue {
	return &asynqExportQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		queue:     queue,
		retention: retention,
	}
}

func (q *asynqExportQueue) EnqueueExport(ctx context.Context, filter logentry.Filter) (string, error) {
	task, err := tasks.NewExportLogsTask(tasks.NewExportLogsPayload(filter), q.queue, q.retention)
	if err != nil {
		return "", err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue task failed: %w", err)
	}
	return info.ID, nil
}

func (q *asynqExportQueue) ExportStatus(_ context.Context, jobID string) (*JobInfo, error) {
	info, err := q.inspector.GetTaskInfo(q.queue, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("查询任务状态失败: %w", err)
	}

	job := &JobInfo{ID: info.ID, Status: statusFromState(info.State)}
	if job.Status == StatusFinished {
		job.Result = string(info.Result)
	}
	return job, nil
}

func (q *asynqExportQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}

// statusFromState completed 视为完成，archived 视为失败，其余均为等待中
func statusFromState(state asynq.TaskState) JobStatus {
	switch state {
	case asynq.TaskStateCompleted:
		return StatusFinished
	case asynq.TaskStateArchived:
		return StatusFailed
	default:
		return StatusPending
	}
}
