// Package seed 为开发环境写入管理员账号与随机日志
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"

	"logapi/internal/auth"
	"logapi/internal/logentry"
	"logapi/internal/user"

	"go.uber.org/zap"
)

// AdminUsername 种子管理员用户名
const AdminUsername = "admin"

var (
	severities = []string{"DEBUG", "INFO", "WARN", "ERROR"}
	sources    = []string{"system", "auth", "db", "logs", "api"}
	messages   = []string{
		"User action completed",
		"Request processed",
		"Background job finished",
		"Cache miss",
		"Cache hit",
		"Database connection established",
		"Database timeout",
		"Authentication succeeded",
		"Authentication failed",
		"Permission denied",
	}
)

// Options 种子参数
type Options struct {
	AdminPassword string
	LogCount      int
}

// Seeder 写入种子数据
type Seeder struct {
	accounts *auth.Service
	users    *user.Service
	logs     *logentry.Service
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewSeeder rng 为 nil 时使用随机种子
func NewSeeder(accounts *auth.Service, users *user.Service, logs *logentry.Service, rng *rand.Rand, logger *zap.Logger) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{accounts: accounts, users: users, logs: logs, rng: rng, logger: logger}
}

// Run 管理员已存在时不修改其密码
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if err := s.ensureAdmin(ctx, opts.AdminPassword); err != nil {
		return err
	}

	for i := 0; i < opts.LogCount; i++ {
		_, err := s.logs.Create(ctx,
			severities[s.rng.IntN(len(severities))],
			sources[s.rng.IntN(len(sources))],
			messages[s.rng.IntN(len(messages))],
		)
		if err != nil {
			return fmt.Errorf("写入第 %d 条日志失败: %w", i+1, err)
		}
	}
	s.logger.Info("种子日志写入完成", zap.Int("count", opts.LogCount))
	return nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, password string) error {
	existing, err := s.users.GetByUsername(ctx, AdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Info("管理员已存在，跳过创建", zap.Uint("user_id", existing.ID))
		return nil
	}

	name, email := "Administrator", "admin@example.com"
	admin, err := s.accounts.Register(ctx, auth.RegisterParams{
		Username: AdminUsername,
		Password: password,
		Name:     &name,
		Email:    &email,
	})
	if err != nil {
		return fmt.Errorf("创建管理员失败: %w", err)
	}

	isAdmin := true
	if _, err := s.users.Update(ctx, admin.ID, user.UpdateParams{IsAdmin: &isAdmin}); err != nil {
		return fmt.Errorf("设置管理员权限失败: %w", err)
	}
	s.logger.Info("管理员已创建", zap.Uint("user_id", admin.ID))
	return nil
}
