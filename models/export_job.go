package models

import "time"

const (
	ExportQueued     = "queued"
	ExportProcessing = "processing"
	ExportDone       = "done"
	ExportFailed     = "failed"
)

type ExportJob struct {
	JobID         string    `gorm:"column:job_id;primaryKey;size:36" json:"jobId"`
	BoardID       uint      `gorm:"column:board_id;index" json:"boardId"`
	RequestedByID uint      `gorm:"column:requested_by_id" json:"requestedById"`
	Format        string    `gorm:"column:format;size:10" json:"format"` // csv, xlsx
	Status        string    `gorm:"column:status;size:20;default:'queued'" json:"status"`
	FilePath      *string   `gorm:"column:file_path;type:text" json:"-"`
	ErrorMsg      *string   `gorm:"column:error_msg;type:text" json:"error,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ExportJob) TableName() string {
	return "export_jobs"
}
