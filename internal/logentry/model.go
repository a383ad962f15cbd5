package logentry

import (
	"errors"
	"time"

	"logapi/internal/common"

	"gorm.io/gorm"
)

// ErrInvalidAggregateField 聚合字段不在白名单内
var ErrInvalidAggregateField = errors.New("logentry: invalid aggregate field")

// 可聚合字段
const (
	FieldSeverity = "severity"
	FieldSource   = "source"
)

// Log 日志条目，timestamp 只由服务端写入
type Log struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index:ix_logs_timestamp;index:ix_logs_ts_sev_src,priority:1" json:"timestamp"`
	Severity  string    `gorm:"type:varchar(50);not null;index:ix_logs_severity;index:ix_logs_ts_sev_src,priority:2" json:"severity"`
	Source    string    `gorm:"type:varchar(100);not null;index:ix_logs_source;index:ix_logs_ts_sev_src,priority:3" json:"source"`
	Message   string    `gorm:"type:varchar(1000);not null" json:"message"`
}

// TableName 指定表名
func (Log) TableName() string {
	return "logs"
}

// Filter 列表、聚合与导出共用的过滤条件
type Filter struct {
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Severity string     `json:"severity,omitempty"`
	Source   string     `json:"source,omitempty"`
}

// Scope 转换为 GORM 查询条件
func (f Filter) Scope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = common.TimeRange("timestamp", f.Start, f.End)(db)
		db = common.EqualIfSet("severity", f.Severity)(db)
		return common.EqualIfSet("source", f.Source)(db)
	}
}

// Page 分页参数
type Page struct {
	Limit  int
	Offset int
}

// Normalize limit 限制在 [1,1000]，默认 100；offset 不小于 0
func (p Page) Normalize() Page {
	p.Limit = common.ClampLimit(p.Limit)
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Patch 部分更新，nil 字段保持不变
type Patch struct {
	Severity *string
	Source   *string
	Message  *string
}

func (p Patch) fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Severity != nil {
		fields["severity"] = *p.Severity
	}
	if p.Source != nil {
		fields["source"] = *p.Source
	}
	if p.Message != nil {
		fields["message"] = *p.Message
	}
	return fields
}

// Bucket 聚合结果
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// ValidAggregateField 是否允许按该字段聚合
func ValidAggregateField(field string) bool {
	return field == FieldSeverity || field == FieldSource
}
