package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/middleware"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/repository"
)

// RejectionError is returned when a user's standing blocks a join.
type RejectionError struct {
	Status         models.UserStatus
	SuspendedUntil *time.Time
	DaysRemaining  int
}

func (e *RejectionError) Error() string {
	if e.Status == models.UserStatusSuspended && e.SuspendedUntil != nil {
		return fmt.Sprintf("account suspended for %d more day(s), until %s",
			e.DaysRemaining, e.SuspendedUntil.Format(time.RFC3339))
	}
	return "account is banned from the community"
}

// StatusGate checks a user's standing before any room join. The check is
// re-run on every allocation attempt, never cached: suspension state can
// change between retries.
type StatusGate struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewStatusGate returns a new StatusGate.
func NewStatusGate(userRepo repository.UserRepository) *StatusGate {
	return &StatusGate{
		userRepo: userRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckEligibility returns nil when the user may join, a *RejectionError when
// their standing blocks them, or a storage error.
//
// A suspension whose expiry has passed is lazily lifted here: whoever
// observes the expiry transitions the user back to active.
func (g *StatusGate) CheckEligibility(ctx context.Context, userID uint) error {
	user, err := g.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	switch user.Status {
	case models.UserStatusBanned:
		return &RejectionError{Status: models.UserStatusBanned}

	case models.UserStatusSuspended:
		now := g.now()
		if user.SuspendedUntil == nil || !now.Before(*user.SuspendedUntil) {
			// Suspension expired: auto-reactivate and let the join proceed.
			if err := g.userRepo.SetStatus(ctx, userID, models.UserStatusActive, nil); err != nil {
				return err
			}
			middleware.Logger.InfoContext(ctx, "suspension auto-expired",
				slog.Uint64("user_id", uint64(userID)))
			return nil
		}
		remaining := user.SuspendedUntil.Sub(now)
		days := int(remaining / (24 * time.Hour))
		if remaining%(24*time.Hour) > 0 {
			days++
		}
		return &RejectionError{
			Status:         models.UserStatusSuspended,
			SuspendedUntil: user.SuspendedUntil,
			DaysRemaining:  days,
		}
	}

	return nil
}
