package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"logapi/internal/common"

	"gorm.io/gorm"
)

// ListQuery 用户列表查询条件
type ListQuery struct {
	Search string
	Active *bool
	Admin  *bool
	Limit  int
	Offset int
}

// Repository 用户持久化接口
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, q ListQuery) ([]User, int64, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) (*User, error)
	Delete(ctx context.Context, id uint) (bool, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository 基于 GORM 的用户仓储
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("创建用户失败: %w", err)
	}
	return nil
}

// GetByID 不存在时返回 nil, nil
func (r *gormRepository) GetByID(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// GetByUsername 不存在时返回 nil, nil
func (r *gormRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]User, int64, error) {
	query := r.db.WithContext(ctx).Model(&User{}).Scopes(
		common.KeywordSearch(q.Search, "username", "name", "email"),
		common.FlagIfSet("is_active", q.Active),
		common.FlagIfSet("is_admin", q.Admin),
	)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计用户失败: %w", err)
	}

	users := make([]User, 0)
	if err := query.Scopes(common.Paginate(q.Limit, q.Offset)).Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("查询用户列表失败: %w", err)
	}
	return users, total, nil
}

// Update 只更新 fields 中给出的列，updated_at 总是刷新
func (r *gormRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*User, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = r.db.NowFunc()

	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("更新用户失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *gormRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("删除用户失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_login": at,
		"updated_at": at,
	}).Error
	if err != nil {
		return fmt.Errorf("更新最后登录时间失败: %w", err)
	}
	return nil
}
