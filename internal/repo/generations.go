package repo

import (
	"context"

	"gorm.io/gorm"

	"inkgen/model"
)

// GenerationRepo persists generation records with gorm.
type GenerationRepo struct {
	db *gorm.DB
}

// NewGenerationRepo builds a GenerationRepo.
func NewGenerationRepo(db *gorm.DB) *GenerationRepo {
	return &GenerationRepo{db: db}
}

// Create inserts a new generation row.
func (r *GenerationRepo) Create(ctx context.Context, gen *model.Generation) error {
	return r.db.WithContext(ctx).Create(gen).Error
}

// List returns a user's generations, newest first.
func (r *GenerationRepo) List(ctx context.Context, userID string) ([]model.Generation, error) {
	var gens []model.Generation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&gens).Error
	return gens, err
}

// MarkCompleted finalizes a successful generation with its output URLs.
func (r *GenerationRepo) MarkCompleted(ctx context.Context, id string, urls []string) error {
	return r.db.WithContext(ctx).Model(&model.Generation{}).
		Where("id = ?", id).
		Updates(model.Generation{
			Status:     model.StatusCompleted,
			OutputURLs: urls,
		}).Error
}

// MarkFailed finalizes a failed generation with its error message.
func (r *GenerationRepo) MarkFailed(ctx context.Context, id, msg string) error {
	return r.db.WithContext(ctx).Model(&model.Generation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    model.StatusFailed,
			"error_msg": msg,
		}).Error
}
