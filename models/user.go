package models

import "time"

type User struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"column:username;size:100;uniqueIndex;not null" json:"username"`
	FullName  string    `gorm:"column:full_name;size:150" json:"fullName"`
	Email     string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"column:password;size:255" json:"-"` // bcrypt hash, empty for Google-only accounts
	IsAdmin   bool      `gorm:"column:is_admin;not null;default:false" json:"isAdmin"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// GlobalRole is the role name carried in access tokens.
func (u User) GlobalRole() string {
	if u.IsAdmin {
		return "ADMIN"
	}
	return "USER"
}
