package logentry

import (
	"context"
	"time"
)

// Service 日志管理
type Service struct {
	repo Repository
}

// NewService 创建日志服务
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create timestamp 取服务端当前 UTC 时间，精度与 timestamptz 一致（微秒）
func (s *Service) Create(ctx context.Context, severity, source, message string) (*Log, error) {
	l := &Log{
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Severity:  severity,
		Source:    source,
		Message:   message,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*Log, error) {
	return s.repo.GetByID(ctx, id)
}

// List 返回当前页与过滤后的总数
func (s *Service) List(ctx context.Context, f Filter, p Page) ([]Log, int64, error) {
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	logs, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	return s.repo.Count(ctx, f)
}

func (s *Service) Update(ctx context.Context, id uint, patch Patch) (*Log, error) {
	return s.repo.Update(ctx, id, patch.fields())
}

func (s *Service) Delete(ctx context.Context, id uint) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// Aggregate by 只能是 severity 或 source
func (s *Service) Aggregate(ctx context.Context, f Filter, by string) ([]Bucket, error) {
	if !ValidAggregateField(by) {
		return nil, ErrInvalidAggregateField
	}
	return s.repo.Aggregate(ctx, f, by)
}
