package server

import (
	"errors"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/featureflags"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/service"

	"github.com/gofiber/fiber/v2"
)

// JoinRoom handles POST /api/groups/:id/stages/:stage/join.
//
// Responses:
//   - 200 with status "already_member" when an active membership already
//     covers the pair
//   - 201 with status "joined" and the assigned room otherwise
//   - 403 when the caller's standing blocks joining
//   - 503 when allocation is contended or paused for maintenance
func (s *Server) JoinRoom(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stage := models.Stage(c.Params("stage"))

	if s.featureFlags.Enabled(featureflags.JoinMaintenance, userID) {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewServerBusyError())
	}

	result, err := s.allocator.JoinRoom(ctx, groupID, stage, userID)
	if err != nil {
		return s.respondJoinError(c, err)
	}

	status := fiber.StatusCreated
	if result.Outcome == service.JoinOutcomeAlreadyMember {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(result)
}

// respondJoinError maps allocator errors onto HTTP statuses.
func (s *Server) respondJoinError(c *fiber.Ctx, err error) error {
	var rejection *service.RejectionError
	if errors.As(err, &rejection) {
		resp := fiber.Map{
			"error":  rejection.Error(),
			"code":   "JOIN_REJECTED",
			"status": string(rejection.Status),
		}
		if rejection.SuspendedUntil != nil {
			resp["suspended_until"] = rejection.SuspendedUntil
			resp["days_remaining"] = rejection.DaysRemaining
		}
		return c.Status(fiber.StatusForbidden).JSON(resp)
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "SERVER_BUSY":
			return models.RespondWithError(c, fiber.StatusServiceUnavailable, appErr)
		case "VALIDATION_ERROR":
			return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
		case "NOT_FOUND":
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

// LeaveRoom handles POST /api/rooms/:id/leave.
func (s *Server) LeaveRoom(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if leaveErr := s.roomService.LeaveRoom(ctx, roomID, userID); leaveErr != nil {
		var appErr *models.AppError
		if errors.As(leaveErr, &appErr) {
			switch appErr.Code {
			case "NOT_A_MEMBER":
				return models.RespondWithError(c, fiber.StatusConflict, appErr)
			case "NOT_FOUND":
				return models.RespondWithError(c, fiber.StatusNotFound, appErr)
			}
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, leaveErr)
	}

	return c.JSON(fiber.Map{"message": "Left room"})
}

// GetRoom handles GET /api/rooms/:id.
func (s *Server) GetRoom(c *fiber.Ctx) error {
	ctx := c.UserContext()

	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, getErr := s.roomService.GetRoom(ctx, roomID)
	if getErr != nil {
		var appErr *models.AppError
		if errors.As(getErr, &appErr) && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, getErr)
	}

	return c.JSON(detail)
}

// GetRooms handles GET /api/groups/:id/stages/:stage/rooms.
func (s *Server) GetRooms(c *fiber.Ctx) error {
	ctx := c.UserContext()

	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stage := models.Stage(c.Params("stage"))

	rooms, listErr := s.roomService.ListRooms(ctx, groupID, stage)
	if listErr != nil {
		var appErr *models.AppError
		if errors.As(listErr, &appErr) {
			switch appErr.Code {
			case "VALIDATION_ERROR":
				return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
			case "NOT_FOUND":
				return models.RespondWithError(c, fiber.StatusNotFound, appErr)
			}
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, listErr)
	}

	return c.JSON(fiber.Map{"rooms": rooms})
}

// GetGroups handles GET /api/groups.
func (s *Server) GetGroups(c *fiber.Ctx) error {
	groups, err := s.roomService.ListGroups(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"groups": groups})
}

// GetGroup handles GET /api/groups/:id.
func (s *Server) GetGroup(c *fiber.Ctx) error {
	groupID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	group, getErr := s.roomService.GetGroup(c.UserContext(), groupID)
	if getErr != nil {
		var appErr *models.AppError
		if errors.As(getErr, &appErr) && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, getErr)
	}
	return c.JSON(group)
}

// GetMyProfile handles GET /api/users/me.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(user)
}

// GetMyMemberships handles GET /api/users/me/memberships.
func (s *Server) GetMyMemberships(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	memberships, err := s.roomService.Memberships(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"memberships": memberships})
}
