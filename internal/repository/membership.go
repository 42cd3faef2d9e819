package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

	"gorm.io/gorm"
)

// MembershipRepository defines the interface for room membership data operations.
// Memberships are append/stamp-only: rows are created on join and stamped with
// left_at when they end, never deleted.
type MembershipRepository interface {
	Create(ctx context.Context, m *models.RoomMembership) error
	GetActive(ctx context.Context, roomID, userID uint) (*models.RoomMembership, error)
	GetActiveForUserInPair(ctx context.Context, userID, groupID uint, stage models.Stage) (*models.RoomMembership, error)
	GetActiveForUser(ctx context.Context, userID uint) ([]*models.RoomMembership, error)
	GetActiveForRoom(ctx context.Context, roomID uint) ([]*models.RoomMembership, error)
	End(ctx context.Context, membershipID string, reason models.LeaveReason) (bool, error)
	CountActiveForRoom(ctx context.Context, roomID uint) (int64, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// Create inserts the membership. A duplicate active membership for the same
// (user, group, stage) pair violates the partial unique index and surfaces as
// models.ErrRoomConflict, so a racing join retries and resolves to the
// already-member path.
func (r *membershipRepository) Create(ctx context.Context, m *models.RoomMembership) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateKey(err) {
			return models.ErrRoomConflict
		}
		return err
	}
	return nil
}

func (r *membershipRepository) GetActive(ctx context.Context, roomID, userID uint) (*models.RoomMembership, error) {
	var m models.RoomMembership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND left_at IS NULL", roomID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetActiveForUserInPair returns the user's active membership for the
// (group, stage) pair across all rooms, or nil. At most one can exist.
func (r *membershipRepository) GetActiveForUserInPair(ctx context.Context, userID, groupID uint, stage models.Stage) (*models.RoomMembership, error) {
	var m models.RoomMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND support_group_id = ? AND stage = ? AND left_at IS NULL", userID, groupID, stage).
		Preload("Room").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) GetActiveForUser(ctx context.Context, userID uint) ([]*models.RoomMembership, error) {
	var memberships []*models.RoomMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND left_at IS NULL", userID).
		Find(&memberships).Error
	return memberships, err
}

func (r *membershipRepository) GetActiveForRoom(ctx context.Context, roomID uint) ([]*models.RoomMembership, error) {
	var memberships []*models.RoomMembership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND left_at IS NULL", roomID).
		Preload("User").
		Find(&memberships).Error
	return memberships, err
}

// End stamps the membership with left_at and the reason. Idempotent: ending
// an already-ended membership is a no-op and returns false.
func (r *membershipRepository) End(ctx context.Context, membershipID string, reason models.LeaveReason) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RoomMembership{}).
		Where("id = ? AND left_at IS NULL", membershipID).
		Updates(map[string]interface{}{
			"left_at":      time.Now().UTC(),
			"leave_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *membershipRepository) CountActiveForRoom(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.RoomMembership{}).
		Where("room_id = ? AND left_at IS NULL", roomID).
		Count(&count).Error
	return count, err
}
