package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"logapi/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// 字段错误使用 json/form 名称而不是 Go 字段名
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

// BindJSON 绑定并校验 JSON 请求体，失败时已写出 422 响应
func BindJSON(c *gin.Context, req any) bool {
	return bindWith(c, req, binding.JSON)
}

// BindQuery 绑定并校验查询参数
func BindQuery(c *gin.Context, req any) bool {
	return bindWith(c, req, binding.Query)
}

// BindForm 绑定并校验表单
func BindForm(c *gin.Context, req any) bool {
	return bindWith(c, req, binding.FormPost)
}

func bindWith(c *gin.Context, req any, b binding.Binding) bool {
	if err := c.ShouldBindWith(req, b); err != nil {
		errs := TranslateBindError(err)
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			if name := numericFormField(req, c.Request.URL.Query(), c.Request.PostForm, numErr.Num); name != "" {
				errs[0].Field = name
			}
		}
		common.FailValidation(c, errs)
		return false
	}
	if v, ok := req.(common.Validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			common.FailValidation(c, errs)
			return false
		}
	}
	return true
}

// numericFormField 按原始取值找回解析失败的数值字段名，匿名嵌入的结构体一并查找
func numericFormField(req any, query, form url.Values, raw string) string {
	t := reflect.TypeOf(req)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return ""
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if name := numericFormField(reflect.New(f.Type).Interface(), query, form, raw); name != "" {
				return name
			}
			continue
		}
		switch f.Type.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
		default:
			continue
		}
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		for _, values := range []url.Values{query, form} {
			for _, v := range values[name] {
				if v == raw {
					return name
				}
			}
		}
	}
	return ""
}

// ParseID 解析正整数路径参数，上限与 BIGINT 主键一致
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 63)
	if err != nil || id == 0 {
		common.FailValidation(c, []common.FieldError{{Field: name, Message: "must be a positive integer"}})
		return 0, false
	}
	return uint(id), true
}

// TranslateBindError 将 gin 绑定错误转换为字段错误列表
func TranslateBindError(err error) []common.FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]common.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, common.FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []common.FieldError{{Field: typeErr.Field, Message: "must be of type " + typeErr.Type.String()}}
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return []common.FieldError{{Field: "query", Message: fmt.Sprintf("value is not a valid number: %q", numErr.Num)}}
	}

	return []common.FieldError{{Field: "body", Message: err.Error()}}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be less than or equal to " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "email":
		return "value is not a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed on the '" + fe.Tag() + "' rule"
	}
}
