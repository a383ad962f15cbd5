package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"logapi/internal/auth"
	"logapi/internal/bootstrap"
	"logapi/internal/infra"
	"logapi/internal/logentry"
	"logapi/internal/logger"
	"logapi/internal/seed"
	"logapi/internal/user"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	adminPassword := flag.String("admin-password", "Admin@12345", "管理员密码")
	logCount := flag.Int("logs", 50, "生成的随机日志条数")
	flag.Parse()

	cfg, _, err := bootstrap.Init()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := bootstrap.OpenDatabase(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase(db)

	tokens, err := auth.NewJWTService(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL())
	if err != nil {
		logger.Fatal("初始化令牌服务失败", zap.Error(err))
	}
	users := user.NewService(user.NewRepository(db))
	accounts := auth.NewService(users, &auth.BcryptHasher{Cost: bcrypt.DefaultCost}, tokens)
	logs := logentry.NewService(logentry.NewRepository(db))

	seeder := seed.NewSeeder(accounts, users, logs, nil, logger.Get())
	if err := seeder.Run(ctx, seed.Options{AdminPassword: *adminPassword, LogCount: *logCount}); err != nil {
		logger.Fatal("写入种子数据失败", zap.Error(err))
	}
}
