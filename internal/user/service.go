package user

import (
	"context"
	"time"
)

// CreateParams 创建用户参数，PasswordHash 由调用方完成哈希
type CreateParams struct {
	Username     string
	PasswordHash string
	Name         *string
	Email        *string
	IsAdmin      bool
}

// UpdateParams 部分更新参数，nil 字段保持不变
type UpdateParams struct {
	Name     *string
	Email    *string
	IsActive *bool
	IsAdmin  *bool
}

func (p UpdateParams) fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Email != nil {
		fields["email"] = *p.Email
	}
	if p.IsActive != nil {
		fields["is_active"] = *p.IsActive
	}
	if p.IsAdmin != nil {
		fields["is_admin"] = *p.IsAdmin
	}
	return fields
}

// Service 用户管理
type Service struct {
	repo Repository
}

// NewService 创建用户服务
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create 用户名已存在时返回 ErrDuplicateUsername
func (s *Service) Create(ctx context.Context, params CreateParams) (*User, error) {
	existing, err := s.repo.GetByUsername(ctx, params.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}

	u := &User{
		Username: params.Username,
		Password: params.PasswordHash,
		Name:     params.Name,
		Email:    params.Email,
		IsActive: true,
		IsAdmin:  params.IsAdmin,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]User, int64, error) {
	return s.repo.List(ctx, q)
}

// Update 用户不存在时返回 nil, nil
func (s *Service) Update(ctx context.Context, id uint, params UpdateParams) (*User, error) {
	return s.repo.Update(ctx, id, params.fields())
}

func (s *Service) Delete(ctx context.Context, id uint) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// RecordLogin 刷新 last_login
func (s *Service) RecordLogin(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return err
	}
	u.LastLogin = &now
	u.UpdatedAt = now
	return nil
}
