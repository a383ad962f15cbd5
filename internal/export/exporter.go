package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"logapi/internal/common"
	"logapi/internal/logentry"
	"logapi/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Header CSV 表头
var Header = []string{"id", "timestamp", "severity", "source", "message"}

// LogLister 分页读取日志
type LogLister interface {
	List(ctx context.Context, f logentry.Filter, p logentry.Page) ([]logentry.Log, error)
}

// Exporter 按过滤条件分页读取日志并生成单个 CSV 文件
type Exporter struct {
	logs     LogLister
	store    ArtifactStore
	pageSize int
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewExporter 创建导出器，pageSize 上限为单页最大条数
func NewExporter(logs LogLister, store ArtifactStore, pageSize int, logger *zap.Logger) *Exporter {
	if pageSize <= 0 || pageSize > common.MaxLimit {
		pageSize = common.MaxLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		logs:     logs,
		store:    store,
		pageSize: pageSize,
		logger:   logger,
		tracer:   otel.Tracer("logapi/internal/export"),
		now:      time.Now,
	}
}

// Store 返回导出文件存储，下载时复用
func (e *Exporter) Store() ArtifactStore {
	return e.store
}

// Export 返回导出文件位置；失败即终止，不重试也不清理
func (e *Exporter) Export(ctx context.Context, filter logentry.Filter, jobID string) (string, error) {
	ctx, span := e.tracer.Start(ctx, "Exporter.Export")
	defer span.End()
	span.SetAttributes(
		attribute.String("job_id", jobID),
		attribute.String("severity", filter.Severity),
		attribute.String("source", filter.Source),
	)

	var location string
	rows, err := metrics.RecordExport(func() (int, error) {
		data, rows, err := e.render(ctx, filter)
		if err != nil {
			return rows, err
		}
		location, err = e.store.Put(ctx, FileName(e.now(), jobID), data)
		return rows, err
	})
	span.SetAttributes(attribute.Int("rows", rows))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		e.logger.Error("日志导出失败", zap.String("job_id", jobID), zap.Error(err))
		return "", err
	}

	e.logger.Info("日志导出完成",
		zap.String("job_id", jobID),
		zap.Int("rows", rows),
		zap.String("location", location),
	)
	return location, nil
}

// render 按页读取，直到某页不足 pageSize
func (e *Exporter) render(ctx context.Context, filter logentry.Filter) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, 0, err
	}

	rows := 0
	for offset := 0; ; offset += e.pageSize {
		page, err := e.logs.List(ctx, filter, logentry.Page{Limit: e.pageSize, Offset: offset})
		if err != nil {
			return nil, rows, fmt.Errorf("读取日志失败: %w", err)
		}
		for _, l := range page {
			record := []string{
				strconv.FormatUint(uint64(l.ID), 10),
				l.Timestamp.UTC().Format(time.RFC3339Nano),
				l.Severity,
				l.Source,
				l.Message,
			}
			if err := w.Write(record); err != nil {
				return nil, rows, err
			}
		}
		rows += len(page)
		if len(page) < e.pageSize {
			break
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, rows, fmt.Errorf("生成 CSV 失败: %w", err)
	}
	return buf.Bytes(), rows, nil
}

var unsafeJobID = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// FileName logs_export_<YYYYMMDDHHMMSS>[_<jobID>].csv
func FileName(at time.Time, jobID string) string {
	name := "logs_export_" + at.UTC().Format("20060102150405")
	if id := unsafeJobID.ReplaceAllString(jobID, ""); id != "" {
		name += "_" + id
	}
	return name + ".csv"
}
