package logs

import (
	"errors"
	"net/http"

	request "logapi/api/handlers/common"
	"logapi/internal/common"
	"logapi/internal/logentry"

	"github.com/gin-gonic/gin"
)

// 响应消息
const (
	MsgLogCreated        = "Log created"
	MsgLogFetched        = "Log fetched"
	MsgLogsFetched       = "Logs fetched"
	MsgLogUpdated        = "Log updated"
	MsgLogDeleted        = "Log deleted"
	MsgAggregatesFetched = "Aggregates fetched"
	MsgLogNotFound       = "Log not found"
	MsgInvalidAggregate  = "Invalid aggregate field"
)

// Handler 日志 CRUD 与聚合
type Handler struct {
	service *logentry.Service
}

// NewHandler 创建 Handler
func NewHandler(service *logentry.Service) *Handler {
	return &Handler{service: service}
}

// CreateLogRequest 创建日志请求，时间戳由服务端生成
type CreateLogRequest struct {
	Severity string `json:"severity" binding:"required,min=1,max=50"`
	Source   string `json:"source" binding:"required,min=1,max=100"`
	Message  string `json:"message" binding:"required,min=1,max=1000"`
}

// Validate 与部分更新使用同一规则
func (r *CreateLogRequest) Validate() []common.FieldError {
	return request.Collect(
		request.NonBlank("severity", &r.Severity),
		request.NonBlank("source", &r.Source),
		request.NonBlank("message", &r.Message),
	)
}

// UpdateLogRequest 部分更新
type UpdateLogRequest struct {
	Severity *string `json:"severity" binding:"omitempty,min=1,max=50"`
	Source   *string `json:"source" binding:"omitempty,min=1,max=100"`
	Message  *string `json:"message" binding:"omitempty,min=1,max=1000"`
}

// Validate 提供的字段不能为空白
func (r *UpdateLogRequest) Validate() []common.FieldError {
	return request.Collect(
		request.NonBlank("severity", r.Severity),
		request.NonBlank("source", r.Source),
		request.NonBlank("message", r.Message),
	)
}

// FilterQuery 列表、聚合与导出共用的过滤参数
type FilterQuery struct {
	Start    string `form:"start"`
	End      string `form:"end"`
	Severity string `form:"severity"`
	Source   string `form:"source"`

	filter logentry.Filter
}

// Validate 解析时间范围，start 不能晚于 end
func (q *FilterQuery) Validate() []common.FieldError {
	start, startErr := request.ParseTime("start", q.Start)
	end, endErr := request.ParseTime("end", q.End)
	errs := request.Collect(startErr, endErr)
	if len(errs) > 0 {
		return errs
	}
	if start != nil && end != nil && start.After(*end) {
		return []common.FieldError{{Field: "end", Message: "end must not be earlier than start"}}
	}
	q.filter = logentry.Filter{Start: start, End: end, Severity: q.Severity, Source: q.Source}
	return nil
}

// Filter 校验通过后的过滤条件
func (q *FilterQuery) Filter() logentry.Filter {
	return q.filter
}

// ListLogsQuery 日志列表查询参数
type ListLogsQuery struct {
	FilterQuery
	Limit  int `form:"limit,default=100" binding:"gte=1,lte=1000"`
	Offset int `form:"offset,default=0" binding:"gte=0"`
}

// LogData 单条日志
type LogData struct {
	Log *logentry.Log `json:"log"`
}

// LogListData 日志列表
type LogListData struct {
	Logs   []logentry.Log `json:"logs"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Aggregation 聚合结果
type Aggregation struct {
	By      string            `json:"by"`
	Buckets []logentry.Bucket `json:"buckets"`
}

// AggregationData 聚合响应
type AggregationData struct {
	Aggregation Aggregation `json:"aggregation"`
}

// Create 创建日志
// @Summary 创建日志
// @Tags Logs
// @Accept json
// @Produce json
// @Param request body CreateLogRequest true "日志内容"
// @Success 201 {object} common.Envelope[LogData]
// @Failure 422 {object} common.Envelope[common.ValidationErrors]
// @Router /api/v1/logs [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateLogRequest
	if !request.BindJSON(c, &req) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), req.Severity, req.Source, req.Message)
	if err != nil {
		common.InternalError(c, err)
		return
	}
	common.Success(c, http.StatusCreated, MsgLogCreated, LogData{Log: created})
}

// Get 获取日志
// @Summary 获取日志
// @Tags Logs
// @Produce json
// @Param id path int true "日志ID"
// @Success 200 {object} common.Envelope[LogData]
// @Failure 404 {object} common.NoData
// @Router /api/v1/logs/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := request.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.InternalError(c, err)
		return
	}
	if l == nil {
		common.Fail(c, http.StatusNotFound, MsgLogNotFound)
		return
	}
	common.Success(c, http.StatusOK, MsgLogFetched, LogData{Log: l})
}

// List 日志列表
// @Summary 日志列表
// @Description 按时间倒序分页，start/end 为闭区间
// @Tags Logs
// @Produce json
// @Param start query string false "起始时间"
// @Param end query string false "结束时间"
// @Param severity query string false "级别"
// @Param source query string false "来源"
// @Param limit query int false "每页数量" default(100)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} common.Envelope[LogListData]
// @Router /api/v1/logs [get]
func (h *Handler) List(c *gin.Context) {
	var q ListLogsQuery
	if !request.BindQuery(c, &q) {
		return
	}

	logs, total, err := h.service.List(c.Request.Context(), q.Filter(), logentry.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		common.InternalError(c, err)
		return
	}
	common.Success(c, http.StatusOK, MsgLogsFetched, LogListData{
		Logs:   logs,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

// Update 更新日志
// @Summary 更新日志
// @Tags Logs
// @Accept json
// @Produce json
// @Param id path int true "日志ID"
// @Param request body UpdateLogRequest true "待更新字段"
// @Success 200 {object} common.Envelope[LogData]
// @Failure 404 {object} common.NoData
// @Router /api/v1/logs/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	id, ok := request.ParseID(c, "id")
	if !ok {
		return
	}
	var req UpdateLogRequest
	if !request.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, logentry.Patch{
		Severity: req.Severity,
		Source:   req.Source,
		Message:  req.Message,
	})
	if err != nil {
		common.InternalError(c, err)
		return
	}
	if updated == nil {
		common.Fail(c, http.StatusNotFound, MsgLogNotFound)
		return
	}
	common.Success(c, http.StatusOK, MsgLogUpdated, LogData{Log: updated})
}

// Delete 删除日志
// @Summary 删除日志
// @Tags Logs
// @Produce json
// @Param id path int true "日志ID"
// @Success 200 {object} common.NoData
// @Failure 404 {object} common.NoData
// @Router /api/v1/logs/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.ParseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		common.InternalError(c, err)
		return
	}
	if !deleted {
		common.Fail(c, http.StatusNotFound, MsgLogNotFound)
		return
	}
	common.SuccessNoData(c, MsgLogDeleted)
}

// Aggregate 按字段分组计数
// @Summary 日志聚合
// @Description 按 severity 或 source 分组计数，按数量降序、键升序排列
// @Tags Logs
// @Produce json
// @Param field path string true "聚合字段" Enums(severity, source)
// @Param start query string false "起始时间"
// @Param end query string false "结束时间"
// @Param severity query string false "级别"
// @Param source query string false "来源"
// @Success 200 {object} common.Envelope[AggregationData]
// @Failure 400 {object} common.NoData "不支持的聚合字段"
// @Router /api/v1/logs/aggregate/by/{field} [get]
func (h *Handler) Aggregate(c *gin.Context) {
	by := c.Param("field")
	if !logentry.ValidAggregateField(by) {
		common.Fail(c, http.StatusBadRequest, MsgInvalidAggregate)
		return
	}
	var q FilterQuery
	if !request.BindQuery(c, &q) {
		return
	}

	buckets, err := h.service.Aggregate(c.Request.Context(), q.Filter(), by)
	if err != nil {
		if errors.Is(err, logentry.ErrInvalidAggregateField) {
			common.Fail(c, http.StatusBadRequest, MsgInvalidAggregate)
			return
		}
		common.InternalError(c, err)
		return
	}
	common.Success(c, http.StatusOK, MsgAggregatesFetched, AggregationData{
		Aggregation: Aggregation{By: by, Buckets: buckets},
	})
}
