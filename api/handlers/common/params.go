package common

import (
	"math"
	"strconv"
	"strings"
	"time"

	"logapi/internal/common"
)

// 查询参数接受的时间格式，不带时区时按 UTC 处理
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// 超过该值的数字时间戳按毫秒解释
const unixMillisThreshold = 2e10

// ParseTime 空字符串返回 nil；纯数字按 Unix 秒（或毫秒）解析
func ParseTime(field, value string) (*time.Time, *common.FieldError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	if t, ok := parseUnix(value); ok {
		return &t, nil
	}
	return nil, &common.FieldError{Field: field, Message: "invalid datetime format"}
}

func parseUnix(value string) (time.Time, bool) {
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	if math.Abs(secs) > unixMillisThreshold {
		secs /= 1000
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond)).UTC(), true
}

// ParseBool 接受 true/false/1/0，空字符串返回 nil
func ParseBool(field, value string) (*bool, *common.FieldError) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return nil, nil
	case "true", "1":
		b := true
		return &b, nil
	case "false", "0":
		b := false
		return &b, nil
	default:
		return nil, &common.FieldError{Field: field, Message: "value could not be parsed to a boolean"}
	}
}

// NonBlank 提供了值时不能只包含空白
func NonBlank(field string, value *string) *common.FieldError {
	if value != nil && strings.TrimSpace(*value) == "" {
		return &common.FieldError{Field: field, Message: "must not be blank"}
	}
	return nil
}

// Collect 丢弃 nil 错误
func Collect(errs ...*common.FieldError) []common.FieldError {
	out := make([]common.FieldError, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// OptionalString 空字符串视为未提供
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
