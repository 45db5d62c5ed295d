package models

import "time"

type List struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BoardID   uint      `gorm:"column:board_id;not null;index" json:"boardId"`
	Name      string    `gorm:"column:name;size:150;not null" json:"name"`
	Position  int       `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (List) TableName() string {
	return "lists"
}
