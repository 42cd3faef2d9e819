package server

import (
	"context"
	"errors"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// moderationRequest is the shared body shape for moderation endpoints.
// Reason is optional; days only applies to suspensions.
type moderationRequest struct {
	Reason string `json:"reason"`
	Days   int    `json:"days"`
}

func (s *Server) parseModerationBody(c *fiber.Ctx) (*moderationRequest, error) {
	var req moderationRequest
	// An empty body means "default reason".
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
			return nil, errResponseWritten
		}
	}
	if err := validation.ValidateReason(req.Reason); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
		return nil, errResponseWritten
	}
	return &req, nil
}

// respondModerationError maps service errors onto HTTP statuses.
func respondModerationError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "FORBIDDEN":
			return models.RespondWithError(c, fiber.StatusForbidden, appErr)
		case "VALIDATION_ERROR":
			return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
		case "NOT_FOUND":
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		case "NOT_A_MEMBER":
			return models.RespondWithError(c, fiber.StatusConflict, appErr)
		}
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

// GetModerationActions handles GET /api/moderation/actions.
func (s *Server) GetModerationActions(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)
	page := parsePagination(c, 50)

	actions, err := s.moderation.ListActions(ctx, moderatorID, page.Limit, page.Offset)
	if err != nil {
		return respondModerationError(c, err)
	}
	return c.JSON(fiber.Map{"actions": actions})
}

// GetModerationUser handles GET /api/moderation/users/:id.
func (s *Server) GetModerationUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	standing, getErr := s.moderation.GetUserStanding(ctx, moderatorID, targetID)
	if getErr != nil {
		return respondModerationError(c, getErr)
	}
	return c.JSON(standing)
}

// GetFeatureFlags handles GET /api/moderation/flags. It shows the flag
// values as configured and how they evaluate for the calling moderator,
// which is how a percentage rollout gets sanity-checked in staging.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	return c.JSON(fiber.Map{
		"configured": s.featureFlags.Raw(),
		"evaluated":  s.featureFlags.Snapshot(userID),
	})
}

// ArchiveRoom handles POST /api/moderation/rooms/:id/archive.
func (s *Server) ArchiveRoom(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.parseModerationBody(c)
	if err != nil {
		return nil
	}

	if archiveErr := s.moderation.ArchiveRoom(ctx, moderatorID, roomID, req.Reason); archiveErr != nil {
		return respondModerationError(c, archiveErr)
	}
	return c.JSON(fiber.Map{"message": "Room archived"})
}

// KickUser handles POST /api/moderation/rooms/:id/kick/:userId.
func (s *Server) KickUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	req, err := s.parseModerationBody(c)
	if err != nil {
		return nil
	}

	if kickErr := s.moderation.KickUser(ctx, moderatorID, roomID, targetID, req.Reason); kickErr != nil {
		return respondModerationError(c, kickErr)
	}
	return c.JSON(fiber.Map{"message": "User removed from room"})
}

// SuspendUser handles POST /api/moderation/users/:id/suspend.
func (s *Server) SuspendUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.parseModerationBody(c)
	if err != nil {
		return nil
	}

	if susErr := s.moderation.SuspendUser(ctx, moderatorID, targetID, req.Days, req.Reason); susErr != nil {
		return respondModerationError(c, susErr)
	}
	return c.JSON(fiber.Map{"message": "User suspended"})
}

// UnsuspendUser handles POST /api/moderation/users/:id/unsuspend.
func (s *Server) UnsuspendUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.parseModerationBody(c)
	if err != nil {
		return nil
	}

	if unsErr := s.moderation.UnsuspendUser(ctx, moderatorID, targetID, req.Reason); unsErr != nil {
		return respondModerationError(c, unsErr)
	}
	return c.JSON(fiber.Map{"message": "Suspension lifted"})
}

// BanUser handles POST /api/moderation/users/:id/ban.
func (s *Server) BanUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.parseModerationBody(c)
	if err != nil {
		return nil
	}

	if banErr := s.moderation.BanUser(ctx, moderatorID, targetID, req.Reason); banErr != nil {
		return respondModerationError(c, banErr)
	}
	return c.JSON(fiber.Map{"message": "User banned"})
}

// UnbanUser handles POST /api/moderation/users/:id/unban.
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.parseModerationBody(c)
	if err != nil {
		return nil
	}

	if unbanErr := s.moderation.UnbanUser(ctx, moderatorID, targetID, req.Reason); unbanErr != nil {
		return respondModerationError(c, unbanErr)
	}
	return c.JSON(fiber.Map{"message": "User unbanned"})
}

// DeleteMessage handles DELETE /api/moderation/messages/:id.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	return s.deleteContent(c, s.moderation.DeleteMessage, "Message deleted")
}

// DeletePost handles DELETE /api/moderation/posts/:id.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	return s.deleteContent(c, s.moderation.DeletePost, "Post deleted")
}

// DeleteComment handles DELETE /api/moderation/comments/:id.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	return s.deleteContent(c, s.moderation.DeleteComment, "Comment deleted")
}

func (s *Server) deleteContent(
	c *fiber.Ctx,
	remove func(ctx context.Context, moderatorID, contentID uint, reason string) error,
	message string,
) error {
	ctx := c.UserContext()
	moderatorID := c.Locals("userID").(uint)

	contentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.parseModerationBody(c)
	if err != nil {
		return nil
	}

	if delErr := remove(ctx, moderatorID, contentID, req.Reason); delErr != nil {
		return respondModerationError(c, delErr)
	}
	return c.JSON(fiber.Map{"message": message})
}
