package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logapi_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logapi_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// APIResponseSize API 响应体大小（字节）
	APIResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logapi_api_response_size_bytes",
			Help:    "API 响应体大小分布",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "path"},
	)
)

// 导出任务指标
var (
	// ExportJobsTotal 导出任务总数
	ExportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logapi_export_jobs_total",
			Help: "CSV 导出任务总数",
		},
		[]string{"status"}, // status: success, failed
	)

	// ExportRowsTotal 导出的日志行数
	ExportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logapi_export_rows_total",
			Help: "CSV 导出的日志总行数",
		},
	)

	// ExportDuration 导出耗时（秒）
	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logapi_export_duration_seconds",
			Help:    "CSV 导出耗时分布",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
)

// 数据库指标
var (
	// DBConnections 数据库连接数
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logapi_db_connections",
			Help: "数据库连接数",
		},
		[]string{"state"}, // state: open, in_use, idle
	)
)

// 系统指标
var (
	// BuildInfo 构建信息
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logapi_build_info",
			Help: "Log API 构建信息",
		},
		[]string{"version", "go_version"},
	)
)

// RecordBuildInfo 记录构建信息
func RecordBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}
