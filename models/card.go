package models

import "time"

type Card struct {
	ID          uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ListID      uint       `gorm:"column:list_id;not null;index" json:"listId"`
	Title       string     `gorm:"column:title;size:255;not null" json:"title"`
	Description *string    `gorm:"column:description;type:text" json:"description"`
	DueDate     *time.Time `gorm:"column:due_date" json:"dueDate"`
	Position    int        `gorm:"column:position;not null;default:0" json:"position"`
	CreatedByID uint       `gorm:"column:created_by_id" json:"createdById"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Attachments []CardAttachment `gorm:"foreignKey:CardID" json:"attachments,omitempty"`
}

func (Card) TableName() string {
	return "cards"
}

type CardAttachment struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CardID       uint      `gorm:"column:card_id;not null;index" json:"cardId"`
	FileName     string    `gorm:"column:file_name;size:255;not null" json:"fileName"`
	URL          string    `gorm:"column:url;type:text;not null" json:"url"`
	ContentType  string    `gorm:"column:content_type;size:100" json:"contentType"`
	Size         int64     `gorm:"column:size" json:"size"`
	UploadedByID uint      `gorm:"column:uploaded_by_id" json:"uploadedById"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (CardAttachment) TableName() string {
	return "card_attachments"
}
