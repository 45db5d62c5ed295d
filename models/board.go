package models

import "time"

// Board role names. Role names are compared case-insensitively.
const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

const MemberStatusActive = "active"

type Board struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;size:150;uniqueIndex;not null" json:"name"`
	Description *string   `gorm:"column:description;type:text" json:"description"`
	CreatedByID uint      `gorm:"column:created_by_id;not null" json:"createdById"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Board) TableName() string {
	return "boards"
}

type BoardRole struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BoardID     uint   `gorm:"column:board_id;not null;index" json:"boardId"`
	Name        string `gorm:"column:name;size:50;not null" json:"name"`
	Description string `gorm:"column:description;size:255" json:"description"`
	IsDefault   bool   `gorm:"column:is_default;not null;default:false" json:"isDefault"`
}

func (BoardRole) TableName() string {
	return "board_roles"
}

type BoardMember struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BoardID     uint      `gorm:"column:board_id;not null;uniqueIndex:idx_board_member" json:"boardId"`
	UserID      uint      `gorm:"column:user_id;not null;uniqueIndex:idx_board_member" json:"userId"`
	RoleID      uint      `gorm:"column:role_id;not null" json:"roleId"`
	InvitedByID *uint     `gorm:"column:invited_by_id" json:"invitedById"`
	JoinedAt    time.Time `gorm:"column:joined_at" json:"joinedAt"`
	Status      string    `gorm:"column:status;size:20;default:'active'" json:"status"`

	User User      `gorm:"foreignKey:UserID" json:"user"`
	Role BoardRole `gorm:"foreignKey:RoleID" json:"role"`
}

func (BoardMember) TableName() string {
	return "board_members"
}
