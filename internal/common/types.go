package common

// 通用响应消息
const (
	MsgValidationError  = "Validation error"
	MsgInternalError    = "Internal server error"
	MsgInvalidToken     = "Invalid or expired token"
	MsgEndpointNotFound = "Endpoint not found"
	MsgTooManyRequests  = "Too many requests"
)

// Envelope 统一 API 响应格式，Data 为 nil 时序列化为 null
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// NoData 无数据载荷的响应
type NoData = Envelope[struct{}]

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors 422 响应的数据部分
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Validator 由请求结构体实现，补充 binding 标签无法表达的规则
type Validator interface {
	Validate() []FieldError
}
