package domain

import (
	"strings"
	"time"
)

// User 表示应用程序中的用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(191);not null"`
	Email     string    `gorm:"type:varchar(191);uniqueIndex:idx_email;not null"`
	Avatar    string    `gorm:"type:varchar(512)"`
	Password  string    `gorm:"type:text;not null"` // 存储的是哈希后的密码
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Info 返回不含敏感字段的用户信息。
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// UserInfo 是对外暴露的用户身份，例如授予访问权限的操作者。
type UserInfo struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// NormalizeEmail 返回邮箱的规范形式：去掉首尾空白并转为小写。
// 访问列表、房间所有者和 JWT 中的邮箱都使用这个形式。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
