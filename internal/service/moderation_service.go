package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/cache"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/middleware"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/observability"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/repository"
)

// MaxSuspensionDays bounds a single suspension. Longer removals are bans.
const MaxSuspensionDays = 365

// ModerationService executes moderator actions and writes the audit trail.
//
// Every state-mutating action appends exactly one audit record after the
// mutation persists. An audit append failure is logged and counted but never
// rolls the mutation back: room and user state is authoritative, the trail
// is best-effort.
type ModerationService struct {
	users       repository.UserRepository
	rooms       repository.RoomRepository
	memberships repository.MembershipRepository
	actions     repository.ModerationRepository
	now         func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(
	users repository.UserRepository,
	rooms repository.RoomRepository,
	memberships repository.MembershipRepository,
	actions repository.ModerationRepository,
) *ModerationService {
	return &ModerationService{
		users:       users,
		rooms:       rooms,
		memberships: memberships,
		actions:     actions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// authorize verifies the actor holds the moderator role.
func (s *ModerationService) authorize(ctx context.Context, moderatorID uint) error {
	isMod, err := s.users.IsModerator(ctx, moderatorID)
	if err != nil {
		return err
	}
	if !isMod {
		return models.NewForbiddenError("Moderator role required")
	}
	return nil
}

// audit appends one record to the moderation log. Failures are swallowed by
// contract: the mutation already happened and must not be undone over a
// logging problem.
func (s *ModerationService) audit(ctx context.Context, action *models.ModerationAction) {
	if err := s.actions.AppendAction(ctx, action); err != nil {
		observability.AuditLogFailures.Inc()
		middleware.Logger.WarnContext(ctx, "audit append failed",
			slog.String("action_type", string(action.ActionType)),
			slog.Uint64("moderator_id", uint64(action.ModeratorID)),
			slog.String("error", err.Error()),
		)
	}
}

// KickUser force-removes the target from one room. The membership closes
// with reason "kicked" and the slot is released; the target's account
// standing is untouched.
func (s *ModerationService) KickUser(ctx context.Context, moderatorID, roomID, targetUserID uint, reason string) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}

	membership, err := s.memberships.GetActive(ctx, roomID, targetUserID)
	if err != nil {
		return err
	}
	if membership == nil {
		return models.NewNotAMemberError(roomID)
	}

	ended, err := s.memberships.End(ctx, membership.ID, models.LeaveReasonKicked)
	if err != nil {
		return err
	}
	if !ended {
		return models.NewNotAMemberError(roomID)
	}
	s.releaseSlot(ctx, roomID)
	cache.InvalidateRoom(ctx, roomID, membership.SupportGroupID, string(membership.Stage))

	observability.ModerationActions.WithLabelValues(string(models.ModerationActionKick)).Inc()
	s.audit(ctx, &models.ModerationAction{
		ModeratorID:  moderatorID,
		ActionType:   models.ModerationActionKick,
		TargetUserID: &targetUserID,
		TargetRoomID: &roomID,
		Reason:       reason,
	})
	return nil
}

// SuspendUser sets the target to suspended for the given number of days and
// force-removes them from every room they are active in. One audit record
// covers the whole sweep.
func (s *ModerationService) SuspendUser(ctx context.Context, moderatorID, targetUserID uint, days int, reason string) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}
	if days < 1 || days > MaxSuspensionDays {
		return models.NewValidationError("Suspension must be between 1 and 365 days")
	}
	if moderatorID == targetUserID {
		return models.NewValidationError("Cannot moderate your own account")
	}

	until := s.now().Add(time.Duration(days) * 24 * time.Hour)
	if err := s.users.SetStatus(ctx, targetUserID, models.UserStatusSuspended, &until); err != nil {
		return err
	}
	s.sweepMemberships(ctx, targetUserID, models.LeaveReasonSuspended)

	observability.ModerationActions.WithLabelValues(string(models.ModerationActionSuspend)).Inc()
	s.audit(ctx, &models.ModerationAction{
		ModeratorID:  moderatorID,
		ActionType:   models.ModerationActionSuspend,
		TargetUserID: &targetUserID,
		Reason:       reason,
	})
	return nil
}

// UnsuspendUser restores a suspended target to active standing early.
func (s *ModerationService) UnsuspendUser(ctx context.Context, moderatorID, targetUserID uint, reason string) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return err
	}
	if target.Status != models.UserStatusSuspended {
		return models.NewValidationError("User is not suspended")
	}
	if err := s.users.SetStatus(ctx, targetUserID, models.UserStatusActive, nil); err != nil {
		return err
	}

	observability.ModerationActions.WithLabelValues(string(models.ModerationActionUnsuspend)).Inc()
	s.audit(ctx, &models.ModerationAction{
		ModeratorID:  moderatorID,
		ActionType:   models.ModerationActionUnsuspend,
		TargetUserID: &targetUserID,
		Reason:       reason,
	})
	return nil
}

// BanUser permanently bars the target and force-removes them from every
// active room. A ban replaces any suspension in progress.
func (s *ModerationService) BanUser(ctx context.Context, moderatorID, targetUserID uint, reason string) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}
	if moderatorID == targetUserID {
		return models.NewValidationError("Cannot moderate your own account")
	}

	if err := s.users.SetStatus(ctx, targetUserID, models.UserStatusBanned, nil); err != nil {
		return err
	}
	s.sweepMemberships(ctx, targetUserID, models.LeaveReasonBanned)

	observability.ModerationActions.WithLabelValues(string(models.ModerationActionBan)).Inc()
	s.audit(ctx, &models.ModerationAction{
		ModeratorID:  moderatorID,
		ActionType:   models.ModerationActionBan,
		TargetUserID: &targetUserID,
		Reason:       reason,
	})
	return nil
}

// UnbanUser restores a banned target to active standing. Past memberships
// stay closed; the target rejoins through normal allocation.
func (s *ModerationService) UnbanUser(ctx context.Context, moderatorID, targetUserID uint, reason string) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return err
	}
	if target.Status != models.UserStatusBanned {
		return models.NewValidationError("User is not banned")
	}
	if err := s.users.SetStatus(ctx, targetUserID, models.UserStatusActive, nil); err != nil {
		return err
	}

	observability.ModerationActions.WithLabelValues(string(models.ModerationActionUnban)).Inc()
	s.audit(ctx, &models.ModerationAction{
		ModeratorID:  moderatorID,
		ActionType:   models.ModerationActionUnban,
		TargetUserID: &targetUserID,
		Reason:       reason,
	})
	return nil
}

// ArchiveRoom terminally closes a room. The member count is frozen as a
// historical record, so departures are recorded without slot releases.
func (s *ModerationService) ArchiveRoom(ctx context.Context, moderatorID, roomID uint, reason string) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status == models.RoomStatusArchived {
		return models.NewValidationError("Room is already archived")
	}
	if err := s.rooms.Archive(ctx, roomID); err != nil {
		return err
	}

	members, err := s.memberships.GetActiveForRoom(ctx, roomID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "archive roster load failed",
			slog.Uint64("room_id", uint64(roomID)),
			slog.String("error", err.Error()),
		)
	}
	for _, m := range members {
		if _, endErr := s.memberships.End(ctx, m.ID, models.LeaveReasonRoomArchived); endErr != nil {
			middleware.Logger.ErrorContext(ctx, "archive membership close failed",
				slog.String("membership_id", m.ID),
				slog.String("error", endErr.Error()),
			)
		}
	}
	cache.InvalidateRoom(ctx, roomID, room.SupportGroupID, string(room.Stage))

	observability.ModerationActions.WithLabelValues(string(models.ModerationActionArchiveRoom)).Inc()
	s.audit(ctx, &models.ModerationAction{
		ModeratorID:  moderatorID,
		ActionType:   models.ModerationActionArchiveRoom,
		TargetRoomID: &roomID,
		Reason:       reason,
	})
	return nil
}

// DeleteMessage soft-deletes a room message.
func (s *ModerationService) DeleteMessage(ctx context.Context, moderatorID, messageID uint, reason string) error {
	return s.deleteContent(ctx, moderatorID, messageID, reason,
		models.ModerationActionDeleteMessage, s.actions.SoftDeleteMessage)
}

// DeletePost soft-deletes a journal post.
func (s *ModerationService) DeletePost(ctx context.Context, moderatorID, postID uint, reason string) error {
	return s.deleteContent(ctx, moderatorID, postID, reason,
		models.ModerationActionDeletePost, s.actions.SoftDeleteJournalPost)
}

// DeleteComment soft-deletes a comment.
func (s *ModerationService) DeleteComment(ctx context.Context, moderatorID, commentID uint, reason string) error {
	return s.deleteContent(ctx, moderatorID, commentID, reason,
		models.ModerationActionDeleteComment, s.actions.SoftDeleteComment)
}

func (s *ModerationService) deleteContent(
	ctx context.Context,
	moderatorID, contentID uint,
	reason string,
	actionType models.ModerationActionType,
	remove func(ctx context.Context, contentID, moderatorID uint) (bool, error),
) error {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return err
	}

	removed, err := remove(ctx, contentID, moderatorID)
	if err != nil {
		return err
	}
	if !removed {
		// Missing or already deleted: no mutation, no audit record.
		return models.NewNotFoundError("Content", contentID)
	}

	observability.ModerationActions.WithLabelValues(string(actionType)).Inc()
	s.audit(ctx, &models.ModerationAction{
		ModeratorID:     moderatorID,
		ActionType:      actionType,
		TargetContentID: &contentID,
		Reason:          reason,
	})
	return nil
}

// UserStanding is the moderator's view of one user: account state, active
// rooms and the actions taken against them.
type UserStanding struct {
	User        *models.User               `json:"user"`
	Memberships []*models.RoomMembership   `json:"memberships"`
	Actions     []*models.ModerationAction `json:"actions"`
}

// GetUserStanding returns the target's standing, active memberships and the
// moderation actions recorded against them, newest first.
func (s *ModerationService) GetUserStanding(ctx context.Context, moderatorID, targetUserID uint) (*UserStanding, error) {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.memberships.GetActiveForUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	actions, err := s.actions.ListActionsForUser(ctx, targetUserID, 50)
	if err != nil {
		return nil, err
	}
	return &UserStanding{User: user, Memberships: memberships, Actions: actions}, nil
}

// ListActions returns the audit trail, newest first.
func (s *ModerationService) ListActions(ctx context.Context, moderatorID uint, limit, offset int) ([]*models.ModerationAction, error) {
	if err := s.authorize(ctx, moderatorID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.actions.ListActions(ctx, limit, offset)
}

// sweepMemberships closes every active membership for the user and releases
// the slot in each affected room. Per-room failures are logged and skipped
// so one bad room cannot block a suspension or ban.
func (s *ModerationService) sweepMemberships(ctx context.Context, userID uint, reason models.LeaveReason) {
	memberships, err := s.memberships.GetActiveForUser(ctx, userID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "membership sweep load failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, m := range memberships {
		ended, endErr := s.memberships.End(ctx, m.ID, reason)
		if endErr != nil {
			middleware.Logger.ErrorContext(ctx, "membership sweep close failed",
				slog.String("membership_id", m.ID),
				slog.String("error", endErr.Error()),
			)
			continue
		}
		if ended {
			s.releaseSlot(ctx, m.RoomID)
			cache.InvalidateRoom(ctx, m.RoomID, m.SupportGroupID, string(m.Stage))
		}
	}
}

func (s *ModerationService) releaseSlot(ctx context.Context, roomID uint) {
	if err := s.rooms.ReleaseSlot(ctx, roomID); err != nil {
		middleware.Logger.ErrorContext(ctx, "slot release failed",
			slog.Uint64("room_id", uint64(roomID)),
			slog.String("error", err.Error()),
		)
	}
}
