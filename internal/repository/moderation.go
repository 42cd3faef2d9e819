package repository

import (
	"context"
	"time"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

	"gorm.io/gorm"
)

// ModerationRepository persists the append-only audit log and the
// soft-delete flags on moderated content.
type ModerationRepository interface {
	AppendAction(ctx context.Context, action *models.ModerationAction) error
	ListActions(ctx context.Context, limit, offset int) ([]*models.ModerationAction, error)
	ListActionsForUser(ctx context.Context, userID uint, limit int) ([]*models.ModerationAction, error)
	SoftDeleteMessage(ctx context.Context, messageID, moderatorID uint) (bool, error)
	SoftDeleteJournalPost(ctx context.Context, postID, moderatorID uint) (bool, error)
	SoftDeleteComment(ctx context.Context, commentID, moderatorID uint) (bool, error)
}

type moderationRepository struct {
	db *gorm.DB
}

// NewModerationRepository returns a new ModerationRepository implementation.
func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) AppendAction(ctx context.Context, action *models.ModerationAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *moderationRepository) ListActions(ctx context.Context, limit, offset int) ([]*models.ModerationAction, error) {
	var actions []*models.ModerationAction
	err := readDB(r.db).WithContext(ctx).
		Preload("Moderator").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&actions).Error
	return actions, err
}

func (r *moderationRepository) ListActionsForUser(ctx context.Context, userID uint, limit int) ([]*models.ModerationAction, error) {
	var actions []*models.ModerationAction
	err := readDB(r.db).WithContext(ctx).
		Where("target_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&actions).Error
	return actions, err
}

// softDelete stamps deleted_at/deleted_by on a content row that is not yet
// deleted. Returns false when the row is missing or already deleted.
func (r *moderationRepository) softDelete(ctx context.Context, model interface{}, id, moderatorID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at":         time.Now().UTC(),
			"deleted_by_user_id": moderatorID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *moderationRepository) SoftDeleteMessage(ctx context.Context, messageID, moderatorID uint) (bool, error) {
	return r.softDelete(ctx, &models.Message{}, messageID, moderatorID)
}

func (r *moderationRepository) SoftDeleteJournalPost(ctx context.Context, postID, moderatorID uint) (bool, error) {
	return r.softDelete(ctx, &models.JournalPost{}, postID, moderatorID)
}

func (r *moderationRepository) SoftDeleteComment(ctx context.Context, commentID, moderatorID uint) (bool, error) {
	return r.softDelete(ctx, &models.Comment{}, commentID, moderatorID)
}
