package metrics

import (
	"context"
	"database/sql"
	"time"
)

// DBStatsCollector 定期采集连接池状态
type DBStatsCollector struct {
	db       *sql.DB
	interval time.Duration
}

// NewDBStatsCollector 创建连接池指标收集器
func NewDBStatsCollector(db *sql.DB, interval time.Duration) *DBStatsCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &DBStatsCollector{db: db, interval: interval}
}

// Run 阻塞直到 ctx 取消
func (c *DBStatsCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collectOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collectOnce()
		}
	}
}

func (c *DBStatsCollector) collectOnce() {
	if c.db == nil {
		return
	}
	stats := c.db.Stats()
	DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
}

// RecordExport 记录一次导出任务的结果
// 使用方法：rows, err := metrics.RecordExport(func() (int, error) { ... })
func RecordExport(fn func() (int, error)) (int, error) {
	start := time.Now()

	rows, err := fn()

	ExportDuration.Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "failed"
	}
	ExportJobsTotal.WithLabelValues(status).Inc()
	if rows > 0 {
		ExportRowsTotal.Add(float64(rows))
	}
	return rows, err
}
