package common

import (
	"net/http"

	"logapi/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Success 返回成功响应
func Success[T any](c *gin.Context, status int, message string, data T) {
	c.JSON(status, Envelope[T]{Success: true, Message: message, Data: &data})
}

// SuccessNoData 返回 data 为 null 的成功响应
func SuccessNoData(c *gin.Context, message string) {
	c.JSON(http.StatusOK, NoData{Success: true, Message: message})
}

// Fail 返回错误响应并中止后续处理
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, NoData{Success: false, Message: message})
}

// FailValidation 返回 422 及字段错误列表
func FailValidation(c *gin.Context, errs []FieldError) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Envelope[ValidationErrors]{
		Success: false,
		Message: MsgValidationError,
		Data:    &ValidationErrors{Errors: errs},
	})
}

// InternalError 记录错误详情，对外只返回通用消息
func InternalError(c *gin.Context, err error) {
	logger.WithContext(c.Request.Context()).Error("请求处理失败",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	Fail(c, http.StatusInternalServerError, MsgInternalError)
}
