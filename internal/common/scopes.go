package common

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// 分页默认值
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ClampLimit 将 limit 限制在 [1, MaxLimit]，0 表示使用默认值
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Paginate limit/offset 分页
// 使用方法：db.Scopes(common.Paginate(limit, offset)).Find(&logs)
func Paginate(limit, offset int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if offset < 0 {
			offset = 0
		}
		return db.Offset(offset).Limit(ClampLimit(limit))
	}
}

// KeywordSearch 多字段大小写不敏感的模糊搜索
// 使用方法：db.Scopes(common.KeywordSearch("ali", "username", "email")).Find(&users)
func KeywordSearch(keyword string, fields ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" || len(fields) == 0 {
			return db
		}

		pattern := "%" + strings.ToLower(keyword) + "%"
		conditions := make([]string, 0, len(fields))
		args := make([]interface{}, 0, len(fields))
		for _, field := range fields {
			conditions = append(conditions, fmt.Sprintf("LOWER(%s) LIKE ?", field))
			args = append(args, pattern)
		}
		return db.Where("("+strings.Join(conditions, " OR ")+")", args...)
	}
}

// TimeRange 闭区间时间过滤，nil 端点不限制
func TimeRange(field string, start, end *time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if start != nil {
			db = db.Where(fmt.Sprintf("%s >= ?", field), start.UTC())
		}
		if end != nil {
			db = db.Where(fmt.Sprintf("%s <= ?", field), end.UTC())
		}
		return db
	}
}

// EqualIfSet 值非空时按字段精确匹配
func EqualIfSet(field, value string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		return db.Where(fmt.Sprintf("%s = ?", field), value)
	}
}

// FlagIfSet 布尔过滤，nil 不限制
func FlagIfSet(field string, value *bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == nil {
			return db
		}
		return db.Where(fmt.Sprintf("%s = ?", field), *value)
	}
}
