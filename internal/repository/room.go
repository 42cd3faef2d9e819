package repository

import (
	"context"
	"errors"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// RoomRepository defines the interface for support room data operations.
//
// Create and ReserveSlot surface models.ErrRoomConflict for the races the
// allocator is expected to retry: a duplicate (group, stage, room_number) on
// create, and a lost capacity update on reserve.
type RoomRepository interface {
	GetByID(ctx context.Context, id uint) (*models.SupportRoom, error)
	Create(ctx context.Context, room *models.SupportRoom) error
	FindOpenRoom(ctx context.Context, groupID uint, stage models.Stage) (*models.SupportRoom, error)
	MaxRoomNumber(ctx context.Context, groupID uint, stage models.Stage) (int, error)
	ReserveSlot(ctx context.Context, room *models.SupportRoom) error
	ReleaseSlot(ctx context.Context, roomID uint) error
	Archive(ctx context.Context, roomID uint) error
	ListByGroupStage(ctx context.Context, groupID uint, stage models.Stage) ([]*models.SupportRoom, error)
}

// roomRepository implements RoomRepository
type roomRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{
		db:  db,
		log: observability.NewRepoLogger("support_rooms"),
	}
}

// isDuplicateKey reports whether err is a unique constraint violation.
// GORM's error translation covers postgres and sqlite; the pgconn check
// catches drivers-level errors that bypass translation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *roomRepository) GetByID(ctx context.Context, id uint) (*models.SupportRoom, error) {
	var room models.SupportRoom
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Room", id)
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) Create(ctx context.Context, room *models.SupportRoom) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.LogConflict(ctx, "duplicate_room_number", map[string]interface{}{
				"support_group_id": room.SupportGroupID,
				"stage":            room.Stage,
				"room_number":      room.RoomNumber,
			})
			return models.ErrRoomConflict
		}
		return err
	}
	return nil
}

// FindOpenRoom returns the lowest-numbered open room with spare capacity for
// the pair, or (nil, nil) when none exists. Ascending order keeps early rooms
// dense before later ones are opened.
func (r *roomRepository) FindOpenRoom(ctx context.Context, groupID uint, stage models.Stage) (*models.SupportRoom, error) {
	var room models.SupportRoom
	err := r.db.WithContext(ctx).
		Where("support_group_id = ? AND stage = ? AND status = ?", groupID, stage, models.RoomStatusOpen).
		Where("member_count < max_members").
		Order("room_number ASC").
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) MaxRoomNumber(ctx context.Context, groupID uint, stage models.Stage) (int, error) {
	var highest int
	err := r.db.WithContext(ctx).
		Model(&models.SupportRoom{}).
		Where("support_group_id = ? AND stage = ?", groupID, stage).
		Select("COALESCE(MAX(room_number), 0)").
		Scan(&highest).Error
	return highest, err
}

// ReserveSlot atomically claims one capacity slot in the room. The member
// count the caller observed is the compare value: a conditional UPDATE only
// succeeds if nobody else changed it since, making check-and-increment a
// single critical section. On success the passed room is updated in place.
func (r *roomRepository) ReserveSlot(ctx context.Context, room *models.SupportRoom) error {
	if !room.HasCapacity() {
		return models.ErrRoomConflict
	}

	newCount := room.MemberCount + 1
	newStatus := room.StatusForCount(newCount)

	res := r.db.WithContext(ctx).
		Model(&models.SupportRoom{}).
		Where("id = ? AND member_count = ? AND status = ?", room.ID, room.MemberCount, models.RoomStatusOpen).
		Updates(map[string]interface{}{
			"member_count": newCount,
			"status":       newStatus,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.LogConflict(ctx, "slot_taken", map[string]interface{}{
			"room_id":        room.ID,
			"observed_count": room.MemberCount,
		})
		return models.ErrRoomConflict
	}

	room.MemberCount = newCount
	room.Status = newStatus
	return nil
}

// ReleaseSlot frees one capacity slot: decrement clamped at zero, and a full
// room reopens. Archived rooms are left untouched; their counts are frozen.
func (r *roomRepository) ReleaseSlot(ctx context.Context, roomID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SupportRoom{}).
		Where("id = ? AND status <> ?", roomID, models.RoomStatusArchived).
		Updates(map[string]interface{}{
			"member_count": gorm.Expr("CASE WHEN member_count > 0 THEN member_count - 1 ELSE 0 END"),
			"status":       gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", models.RoomStatusFull, models.RoomStatusOpen),
		}).Error
}

// Archive marks the room archived. Terminal: no status leaves archived.
func (r *roomRepository) Archive(ctx context.Context, roomID uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.SupportRoom{}).
		Where("id = ? AND status <> ?", roomID, models.RoomStatusArchived).
		Update("status", models.RoomStatusArchived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Room", roomID)
	}
	return nil
}

func (r *roomRepository) ListByGroupStage(ctx context.Context, groupID uint, stage models.Stage) ([]*models.SupportRoom, error) {
	var rooms []*models.SupportRoom
	err := readDB(r.db).WithContext(ctx).
		Where("support_group_id = ? AND stage = ?", groupID, stage).
		Order("room_number ASC").
		Find(&rooms).Error
	return rooms, err
}
