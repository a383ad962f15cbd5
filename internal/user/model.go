package user

import (
	"errors"
	"time"
)

// ErrDuplicateUsername 用户名已被占用
var ErrDuplicateUsername = errors.New("user: username already exists")

// User 用户账号
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"type:varchar(50);not null;uniqueIndex:ix_users_username" json:"username"`
	Password  string     `gorm:"type:varchar(255);not null" json:"-"`
	Name      *string    `gorm:"type:varchar(100)" json:"name"`
	Email     *string    `gorm:"type:varchar(255)" json:"email"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	IsAdmin   bool       `gorm:"not null" json:"is_admin"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
