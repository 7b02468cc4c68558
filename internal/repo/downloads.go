package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"inkgen/model"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("record not found")

// DownloadRepo persists download jobs with gorm.
type DownloadRepo struct {
	db *gorm.DB
}

// NewDownloadRepo builds a DownloadRepo.
func NewDownloadRepo(db *gorm.DB) *DownloadRepo {
	return &DownloadRepo{db: db}
}

// Create inserts a new download job row.
func (r *DownloadRepo) Create(ctx context.Context, job *model.DownloadJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID fetches a job scoped by (id, user_id).
func (r *DownloadRepo) GetByID(ctx context.Context, id, userID string) (*model.DownloadJob, error) {
	var job model.DownloadJob
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns a user's jobs, newest first.
func (r *DownloadRepo) List(ctx context.Context, userID string) ([]model.DownloadJob, error) {
	var jobs []model.DownloadJob
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// UpdateStatus sets a job's status. Worker-side, so not user scoped.
func (r *DownloadRepo) UpdateStatus(ctx context.Context, id string, status model.JobStatus) error {
	return r.db.WithContext(ctx).Model(&model.DownloadJob{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkCompleted finalizes a successful job with its storage path.
func (r *DownloadRepo) MarkCompleted(ctx context.Context, id, storagePath string) error {
	return r.db.WithContext(ctx).Model(&model.DownloadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.StatusCompleted,
			"storage_path": storagePath,
		}).Error
}

// MarkFailed finalizes a failed job with its error message.
func (r *DownloadRepo) MarkFailed(ctx context.Context, id, msg string) error {
	return r.db.WithContext(ctx).Model(&model.DownloadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    model.StatusFailed,
			"error_msg": msg,
		}).Error
}

// CancelJob flips a job to failed, scoped by (id, user_id).
func (r *DownloadRepo) CancelJob(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Model(&model.DownloadJob{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", model.StatusFailed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a job row, scoped by (id, user_id).
func (r *DownloadRepo) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.DownloadJob{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
