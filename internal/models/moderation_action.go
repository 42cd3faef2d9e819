package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModerationActionType enumerates auditable moderation operations.
type ModerationActionType string

const (
	ModerationActionKick          ModerationActionType = "kick"
	ModerationActionSuspend       ModerationActionType = "suspend"
	ModerationActionUnsuspend     ModerationActionType = "unsuspend"
	ModerationActionBan           ModerationActionType = "ban"
	ModerationActionUnban         ModerationActionType = "unban"
	ModerationActionDeleteMessage ModerationActionType = "delete_message"
	ModerationActionDeletePost    ModerationActionType = "delete_post"
	ModerationActionDeleteComment ModerationActionType = "delete_comment"
	ModerationActionArchiveRoom   ModerationActionType = "archive_room"
)

// DefaultModerationReason is used when a moderator omits the reason.
const DefaultModerationReason = "violates community guidelines"

// ModerationAction is an append-only audit record. Every state-mutating
// moderation operation writes exactly one row; at least one target field is
// set. Rows are never updated or deleted.
type ModerationAction struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	RecordID        string               `gorm:"type:varchar(36);not null;uniqueIndex" json:"record_id"`
	ModeratorID     uint                 `gorm:"not null;index" json:"moderator_id"`
	Moderator       *User                `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`
	ActionType      ModerationActionType `gorm:"type:varchar(20);not null;index" json:"action_type"`
	TargetUserID    *uint                `gorm:"index" json:"target_user_id,omitempty"`
	TargetRoomID    *uint                `gorm:"index" json:"target_room_id,omitempty"`
	TargetContentID *uint                `json:"target_content_id,omitempty"`
	Reason          string               `gorm:"type:text;not null" json:"reason"`
	CreatedAt       time.Time            `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (ModerationAction) TableName() string {
	return "moderation_actions"
}

// BeforeCreate assigns the record id and defaults the reason.
func (a *ModerationAction) BeforeCreate(_ *gorm.DB) error {
	if a.RecordID == "" {
		a.RecordID = uuid.NewString()
	}
	if a.Reason == "" {
		a.Reason = DefaultModerationReason
	}
	return nil
}
