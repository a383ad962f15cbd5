package auth

import (
	"context"
	"errors"

	"logapi/internal/user"
)

var (
	// ErrInvalidCredentials 用户不存在与密码错误返回同一个错误
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrDuplicateUsername 注册时用户名已存在
	ErrDuplicateUsername = user.ErrDuplicateUsername
)

// RegisterParams 注册参数
type RegisterParams struct {
	Username string
	Password string
	Name     *string
	Email    *string
}

// Service 注册、认证与令牌签发
type Service struct {
	users  *user.Service
	hasher PasswordHasher
	tokens *JWTService
}

// NewService 创建认证服务
func NewService(users *user.Service, hasher PasswordHasher, tokens *JWTService) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

// Register 新用户 active=true、admin=false
func (s *Service) Register(ctx context.Context, params RegisterParams) (*user.User, error) {
	existing, err := s.users.GetByUsername(ctx, params.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, user.CreateParams{
		Username:     params.Username,
		PasswordHash: hash,
		Name:         params.Name,
		Email:        params.Email,
	})
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !s.hasher.Compare(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) CreateToken(username string) (string, error) {
	return s.tokens.CreateToken(username)
}

// RecordLogin 登录成功后刷新 last_login 与 updated_at
func (s *Service) RecordLogin(ctx context.Context, u *user.User) error {
	return s.users.RecordLogin(ctx, u)
}

// CurrentUser 令牌对应的用户已被删除时同样视为令牌无效
func (s *Service) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidOrExpiredToken
	}
	return u, nil
}
