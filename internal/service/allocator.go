// Package service provides the room allocation and moderation business logic.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/cache"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/middleware"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/observability"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/repository"
)

// AllocatorConfig tunes the join retry loop and room capacity.
type AllocatorConfig struct {
	MaxMembers  int
	MaxRetries  int
	BackoffBase time.Duration
}

// DefaultAllocatorConfig returns the production defaults.
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		MaxMembers:  10,
		MaxRetries:  5,
		BackoffBase: 100 * time.Millisecond,
	}
}

// JoinOutcome describes how a join request resolved.
type JoinOutcome string

const (
	// JoinOutcomeJoined means a slot was reserved and a membership created.
	JoinOutcomeJoined JoinOutcome = "joined"
	// JoinOutcomeAlreadyMember means an active membership already covered
	// the (group, stage) pair; no room state was touched.
	JoinOutcomeAlreadyMember JoinOutcome = "already_member"
)

// JoinResult is the successful outcome of a join request.
type JoinResult struct {
	Outcome    JoinOutcome            `json:"status"`
	Room       *models.SupportRoom    `json:"room"`
	Membership *models.RoomMembership `json:"membership"`
}

// RoomAllocator assigns users to capacity-bounded support rooms. It is safe
// for any number of concurrent callers; capacity races surface as
// models.ErrRoomConflict from the repository and are retried with
// exponential backoff.
type RoomAllocator struct {
	rooms       repository.RoomRepository
	memberships repository.MembershipRepository
	groups      repository.GroupRepository
	gate        *StatusGate
	cfg         AllocatorConfig
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRoomAllocator returns a new RoomAllocator.
func NewRoomAllocator(
	rooms repository.RoomRepository,
	memberships repository.MembershipRepository,
	groups repository.GroupRepository,
	gate *StatusGate,
	cfg AllocatorConfig,
) *RoomAllocator {
	return &RoomAllocator{
		rooms:       rooms,
		memberships: memberships,
		groups:      groups,
		gate:        gate,
		cfg:         cfg,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// JoinRoom finds or creates an open room for the (group, stage) pair and
// registers the user in it.
//
// Eligibility rejections terminate immediately. Storage conflicts are
// retried up to cfg.MaxRetries times with backoff base*2^attempt; once the
// budget is spent the caller gets a SERVER_BUSY AppError, which is always
// transient, never a denial.
func (a *RoomAllocator) JoinRoom(ctx context.Context, groupID uint, stage models.Stage, userID uint) (*JoinResult, error) {
	if !models.ValidStage(stage) {
		return nil, models.NewValidationError("Unknown experience stage")
	}
	if _, err := a.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.cfg.BackoffBase * (1 << (attempt - 1))
			if err := a.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		result, err := a.attempt(ctx, groupID, stage, userID)
		if err == nil {
			observability.JoinAttempts.WithLabelValues(string(result.Outcome)).Inc()
			observability.AllocationRetries.Observe(float64(attempt + 1))
			return result, nil
		}
		if errors.Is(err, models.ErrRoomConflict) {
			// Transient race: another caller took the slot or the room
			// number. Never surfaced; retry the whole attempt.
			continue
		}
		var rejection *RejectionError
		if errors.As(err, &rejection) {
			observability.JoinAttempts.WithLabelValues("rejected").Inc()
			return nil, err
		}
		observability.JoinAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	observability.JoinAttempts.WithLabelValues("server_busy").Inc()
	middleware.Logger.WarnContext(ctx, "join retries exhausted",
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("group_id", uint64(groupID)),
		slog.String("stage", string(stage)),
	)
	return nil, models.NewServerBusyError()
}

// attempt runs one full pass: gate, dedup check, find-or-create, reserve,
// register. A conflict anywhere restarts the whole pass, not just the step.
func (a *RoomAllocator) attempt(ctx context.Context, groupID uint, stage models.Stage, userID uint) (*JoinResult, error) {
	// Re-checked on every attempt; standing can change between retries.
	if err := a.gate.CheckEligibility(ctx, userID); err != nil {
		return nil, err
	}

	existing, err := a.memberships.GetActiveForUserInPair(ctx, userID, groupID, stage)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Room == nil || existing.Room.Status != models.RoomStatusArchived {
			return &JoinResult{
				Outcome:    JoinOutcomeAlreadyMember,
				Room:       existing.Room,
				Membership: existing,
			}, nil
		}
		// The room was archived but the closing sweep was interrupted
		// before it stamped this membership. Finish the sweep here so the
		// stale row does not collide with the new membership; archived
		// rooms keep their frozen count, so no slot is released.
		if _, err := a.memberships.End(ctx, existing.ID, models.LeaveReasonRoomArchived); err != nil {
			return nil, err
		}
	}

	room, err := a.findOrCreateRoom(ctx, groupID, stage)
	if err != nil {
		return nil, err
	}
	return a.reserveAndRegister(ctx, room, userID)
}

// findOrCreateRoom returns the lowest-numbered open room with capacity, or
// creates the next room in sequence. The room number comes from reading the
// current maximum; two concurrent creators can compute the same number, and
// the unique index on (group, stage, room_number) is the safety net that
// turns that into a retryable conflict instead of an overwrite.
func (a *RoomAllocator) findOrCreateRoom(ctx context.Context, groupID uint, stage models.Stage) (*models.SupportRoom, error) {
	room, err := a.rooms.FindOpenRoom(ctx, groupID, stage)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}

	highest, err := a.rooms.MaxRoomNumber(ctx, groupID, stage)
	if err != nil {
		return nil, err
	}

	room = &models.SupportRoom{
		SupportGroupID: groupID,
		Stage:          stage,
		RoomNumber:     highest + 1,
		MemberCount:    0,
		MaxMembers:     a.cfg.MaxMembers,
		Status:         models.RoomStatusOpen,
	}
	if err := a.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, models.ErrRoomConflict) {
			observability.AllocationConflicts.WithLabelValues("duplicate_room_number").Inc()
		}
		return nil, err
	}
	observability.RoomsCreated.Inc()
	return room, nil
}

// reserveAndRegister claims a capacity slot and creates the membership.
// If the membership insert fails after the slot was claimed, the slot is
// released again: a slot must never be held without a membership.
func (a *RoomAllocator) reserveAndRegister(ctx context.Context, room *models.SupportRoom, userID uint) (*JoinResult, error) {
	if err := a.rooms.ReserveSlot(ctx, room); err != nil {
		if errors.Is(err, models.ErrRoomConflict) {
			observability.AllocationConflicts.WithLabelValues("slot_taken").Inc()
		}
		return nil, err
	}

	membership := &models.RoomMembership{
		RoomID:         room.ID,
		UserID:         userID,
		SupportGroupID: room.SupportGroupID,
		Stage:          room.Stage,
		JoinedAt:       time.Now().UTC(),
	}
	if err := a.memberships.Create(ctx, membership); err != nil {
		// Compensate: give the slot back before retrying. A failed
		// release leaks the slot until the room is archived, so retry
		// once before settling for a log line.
		relErr := a.rooms.ReleaseSlot(ctx, room.ID)
		if relErr != nil {
			relErr = a.rooms.ReleaseSlot(ctx, room.ID)
		}
		if relErr != nil {
			middleware.Logger.ErrorContext(ctx, "slot release compensation failed",
				slog.Uint64("room_id", uint64(room.ID)),
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", relErr.Error()),
			)
		}
		return nil, models.ErrRoomConflict
	}

	cache.InvalidateRoom(ctx, room.ID, room.SupportGroupID, string(room.Stage))

	membership.Room = room
	return &JoinResult{
		Outcome:    JoinOutcomeJoined,
		Room:       room,
		Membership: membership,
	}, nil
}
