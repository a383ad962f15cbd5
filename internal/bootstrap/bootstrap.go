// Package bootstrap 各进程入口共用的启动步骤
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"logapi/internal/config"
	"logapi/internal/export"
	"logapi/internal/infra"
	"logapi/internal/logentry"
	"logapi/internal/logger"
	"logapi/internal/migrations"
	"logapi/internal/user"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models 由 GORM 自动迁移的模型
var Models = []interface{}{&user.User{}, &logentry.Log{}}

// Init 加载 .env 与配置并初始化全局日志
func Init() (*config.Config, string, error) {
	loadEnvFile()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env, "")
	if err != nil {
		return nil, env, fmt.Errorf("加载配置失败: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		return nil, env, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, env, nil
}

// OpenDatabase 打开数据库并迁移表结构
// postgres 默认走 goose 迁移，sqlite 或显式开启 auto_migrate 时使用 GORM
func OpenDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := infra.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db, cfg); err != nil {
		_ = infra.CloseDatabase(db)
		return nil, err
	}
	return db, nil
}

// Migrate 按驱动选择迁移方式
func Migrate(ctx context.Context, db *gorm.DB, cfg *config.DatabaseConfig) error {
	if cfg.AutoMigrate || !strings.EqualFold(cfg.Driver, "postgres") {
		return infra.AutoMigrate(db, Models...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取 SQL DB 失败: %w", err)
	}
	logger.Info("执行 goose 数据库迁移")
	return migrations.Up(ctx, sqlDB)
}

// ArtifactStore 按 export.storage 创建导出文件存储
func ArtifactStore(ctx context.Context, cfg config.ExportConfig) (export.ArtifactStore, error) {
	store, err := export.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化导出存储失败: %w", err)
	}
	logger.Info("导出存储已就绪", zap.String("storage", cfg.Storage))
	return store, nil
}

// loadEnvFile 依次尝试加载当前目录及上级目录的 .env 文件
func loadEnvFile() {
	path := resolveEnvPath()
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "加载环境变量文件 %s 失败: %v\n", path, err)
	}
}

// resolveEnvPath 从当前工作目录、可执行文件目录向上查找 .env
func resolveEnvPath() string {
	for _, path := range collectEnvCandidates() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func collectEnvCandidates() []string {
	seen := make(map[string]struct{})
	var candidates []string
	traverse := func(start string) {
		dir := filepath.Clean(start)
		for i := 0; i < 4; i++ {
			if dir == "" || dir == string(filepath.Separator) || dir == "." {
				break
			}
			path := filepath.Join(dir, ".env")
			if _, ok := seen[path]; !ok {
				seen[path] = struct{}{}
				candidates = append(candidates, path)
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if wd, err := os.Getwd(); err == nil {
		traverse(wd)
	}
	if exe, err := os.Executable(); err == nil {
		traverse(filepath.Dir(exe))
	}
	return candidates
}
