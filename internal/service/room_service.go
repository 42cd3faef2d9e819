package service

import (
	"context"
	"log/slog"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/cache"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/middleware"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/repository"
)

// RoomService covers room reads and voluntary departures. Joins go through
// the RoomAllocator; forced removals go through the ModerationService.
type RoomService struct {
	rooms       repository.RoomRepository
	memberships repository.MembershipRepository
	groups      repository.GroupRepository
}

func NewRoomService(
	rooms repository.RoomRepository,
	memberships repository.MembershipRepository,
	groups repository.GroupRepository,
) *RoomService {
	return &RoomService{rooms: rooms, memberships: memberships, groups: groups}
}

// RoomDetail is a room with its active member roster.
type RoomDetail struct {
	Room    *models.SupportRoom      `json:"room"`
	Members []*models.RoomMembership `json:"members"`
}

// LeaveRoom ends the caller's active membership in the room and releases the
// capacity slot. Returns NOT_A_MEMBER when no active membership exists, so a
// double leave fails cleanly instead of double-decrementing.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID uint) error {
	membership, err := s.memberships.GetActive(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		return models.NewNotAMemberError(roomID)
	}

	ended, err := s.memberships.End(ctx, membership.ID, models.LeaveReasonLeft)
	if err != nil {
		return err
	}
	if !ended {
		// Lost a race with a concurrent leave or a moderation removal.
		return models.NewNotAMemberError(roomID)
	}

	if err := s.rooms.ReleaseSlot(ctx, roomID); err != nil {
		// The membership is already closed, and a leaked slot stays leaked
		// until the room is archived. Retry once, then log; the caller
		// already left either way.
		if err = s.rooms.ReleaseSlot(ctx, roomID); err != nil {
			middleware.Logger.ErrorContext(ctx, "slot release failed after leave",
				slog.Uint64("room_id", uint64(roomID)),
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		}
	}

	cache.InvalidateRoom(ctx, roomID, membership.SupportGroupID, string(membership.Stage))
	return nil
}

// GetRoom returns the room and its active roster.
func (s *RoomService) GetRoom(ctx context.Context, roomID uint) (*RoomDetail, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members, err := s.memberships.GetActiveForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &RoomDetail{Room: room, Members: members}, nil
}

// ListRooms returns every room for the (group, stage) pair, cached briefly
// so the directory view does not hammer the primary.
func (s *RoomService) ListRooms(ctx context.Context, groupID uint, stage models.Stage) ([]*models.SupportRoom, error) {
	if !models.ValidStage(stage) {
		return nil, models.NewValidationError("Unknown experience stage")
	}
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	var rooms []*models.SupportRoom
	key := cache.RoomDirectoryKey(groupID, string(stage))
	err := cache.Aside(ctx, key, &rooms, cache.RoomDirectoryTTL, func() error {
		var fetchErr error
		rooms, fetchErr = s.rooms.ListByGroupStage(ctx, groupID, stage)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// ListGroups returns all support groups.
func (s *RoomService) ListGroups(ctx context.Context) ([]*models.SupportGroup, error) {
	return s.groups.List(ctx)
}

// GetGroup returns one support group.
func (s *RoomService) GetGroup(ctx context.Context, groupID uint) (*models.SupportGroup, error) {
	return s.groups.GetByID(ctx, groupID)
}

// Memberships returns the caller's active memberships across all rooms.
func (s *RoomService) Memberships(ctx context.Context, userID uint) ([]*models.RoomMembership, error) {
	return s.memberships.GetActiveForUser(ctx, userID)
}
