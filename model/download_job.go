package model

import "time"

// JobStatus is the lifecycle state shared by download jobs and generations.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DownloadJob is a single fetch-and-store unit of work owned by a user.
type DownloadJob struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	URL         string    `gorm:"column:url;type:text;not null" json:"url"`
	Status      JobStatus `gorm:"column:status;type:varchar(32);index;not null" json:"status"`
	StoragePath string    `gorm:"column:storage_path;type:varchar(512)" json:"storage_path"`
	ErrorMsg    string    `gorm:"column:error_msg;type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (DownloadJob) TableName() string {
	return "downloads"
}
