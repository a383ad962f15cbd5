package logs

import (
	"errors"
	"fmt"
	"net/http"
	"path"

	request "logapi/api/handlers/common"
	"logapi/internal/common"
	"logapi/internal/export"
	"logapi/internal/infra/queue"
	"logapi/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 导出相关响应消息
const (
	MsgExportEnqueued = "Export enqueued"
	MsgExportReady    = "Export ready"
	MsgExportFailed   = "Export failed"
	MsgExportPending  = "Export pending"
	MsgJobNotFound    = "Job not found"
	MsgExportNotReady = "Export not ready"
)

// ExportHandler 异步 CSV 导出
type ExportHandler struct {
	queue queue.ExportQueue
	store export.ArtifactStore
}

// NewExportHandler 创建导出 Handler，store 用于下载已完成的导出文件
func NewExportHandler(q queue.ExportQueue, store export.ArtifactStore) *ExportHandler {
	return &ExportHandler{queue: q, store: store}
}

// JobData 入队结果
type JobData struct {
	JobID string `json:"job_id"`
}

// JobStatusData 任务状态，完成时带文件位置
type JobStatusData struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// Enqueue 提交导出任务
// @Summary 提交 CSV 导出任务
// @Tags Export
// @Produce json
// @Param start query string false "起始时间"
// @Param end query string false "结束时间"
// @Param severity query string false "级别"
// @Param source query string false "来源"
// @Success 200 {object} common.Envelope[JobData]
// @Router /api/v1/logs/export [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	var q FilterQuery
	if !request.BindQuery(c, &q) {
		return
	}

	jobID, err := h.queue.EnqueueExport(c.Request.Context(), q.Filter())
	if err != nil {
		common.InternalError(c, err)
		return
	}

	logger.WithContext(c.Request.Context()).Info("导出任务已入队", zap.String("job_id", jobID))
	common.Success(c, http.StatusOK, MsgExportEnqueued, JobData{JobID: jobID})
}

// Status 查询导出任务状态
// @Summary 查询导出任务状态
// @Description 失败的任务返回 success=false 且 HTTP 状态仍为 200
// @Tags Export
// @Produce json
// @Param job_id path string true "任务ID"
// @Success 200 {object} common.Envelope[JobStatusData]
// @Failure 404 {object} common.NoData
// @Router /api/v1/logs/export/{job_id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	job, ok := h.lookup(c, MsgJobNotFound)
	if !ok {
		return
	}

	switch job.Status {
	case queue.StatusFinished:
		common.Success(c, http.StatusOK, MsgExportReady, JobStatusData{Status: string(job.Status), Path: job.Result})
	case queue.StatusFailed:
		data := JobStatusData{Status: string(job.Status)}
		c.JSON(http.StatusOK, common.Envelope[JobStatusData]{Success: false, Message: MsgExportFailed, Data: &data})
	default:
		common.Success(c, http.StatusOK, MsgExportPending, JobStatusData{Status: string(job.Status)})
	}
}

// Download 下载导出文件
// @Summary 下载导出的 CSV
// @Tags Export
// @Produce text/csv
// @Param job_id path string true "任务ID"
// @Success 200 {file} file
// @Failure 404 {object} common.NoData "导出未完成"
// @Router /api/v1/logs/export/{job_id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	job, ok := h.lookup(c, MsgExportNotReady)
	if !ok {
		return
	}
	if job.Status != queue.StatusFinished || job.Result == "" {
		common.Fail(c, http.StatusNotFound, MsgExportNotReady)
		return
	}

	rc, err := h.store.Open(c.Request.Context(), job.Result)
	if err != nil {
		if errors.Is(err, export.ErrArtifactNotFound) {
			common.Fail(c, http.StatusNotFound, MsgExportNotReady)
			return
		}
		common.InternalError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "text/csv", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, path.Base(job.Result)),
	})
}

func (h *ExportHandler) lookup(c *gin.Context, notFound string) (*queue.JobInfo, bool) {
	job, err := h.queue.ExportStatus(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			common.Fail(c, http.StatusNotFound, notFound)
			return nil, false
		}
		common.InternalError(c, err)
		return nil, false
	}
	return job, true
}
