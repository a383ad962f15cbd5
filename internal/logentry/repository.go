package logentry

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository 日志持久化接口
type Repository interface {
	Create(ctx context.Context, l *Log) error
	GetByID(ctx context.Context, id uint) (*Log, error)
	List(ctx context.Context, f Filter, p Page) ([]Log, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) (*Log, error)
	Delete(ctx context.Context, id uint) (bool, error)
	Aggregate(ctx context.Context, f Filter, field string) ([]Bucket, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository 基于 GORM 的日志仓储
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, l *Log) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("写入日志失败: %w", err)
	}
	return nil
}

// GetByID 不存在时返回 nil, nil
func (r *gormRepository) GetByID(ctx context.Context, id uint) (*Log, error) {
	var l Log
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询日志失败: %w", err)
	}
	return &l, nil
}

// List 按 timestamp、id 倒序分页
func (r *gormRepository) List(ctx context.Context, f Filter, p Page) ([]Log, error) {
	p = p.Normalize()
	logs := make([]Log, 0)
	err := r.db.WithContext(ctx).
		Scopes(f.Scope()).
		Order("timestamp DESC").
		Order("id DESC").
		Offset(p.Offset).
		Limit(p.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("查询日志列表失败: %w", err)
	}
	return logs, nil
}

func (r *gormRepository) Count(ctx context.Context, f Filter) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Log{}).Scopes(f.Scope()).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("统计日志失败: %w", err)
	}
	return total, nil
}

// Update 日志不存在时返回 nil, nil
func (r *gormRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*Log, error) {
	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}
	res := r.db.WithContext(ctx).Model(&Log{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("更新日志失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *gormRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&Log{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("删除日志失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type bucketRow struct {
	BucketKey   string
	BucketCount int64
}

// Aggregate 按字段分组计数，count 倒序、key 升序
func (r *gormRepository) Aggregate(ctx context.Context, f Filter, field string) ([]Bucket, error) {
	if !ValidAggregateField(field) {
		return nil, ErrInvalidAggregateField
	}

	var rows []bucketRow
	err := r.db.WithContext(ctx).Model(&Log{}).
		Scopes(f.Scope()).
		Select(field + " AS bucket_key, COUNT(*) AS bucket_count").
		Group(field).
		Order("bucket_count DESC").
		Order("bucket_key ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("聚合日志失败: %w", err)
	}

	buckets := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, Bucket{Key: row.BucketKey, Count: row.BucketCount})
	}
	return buckets, nil
}
