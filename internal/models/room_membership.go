package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaveReason records why a membership ended. Memberships are never deleted,
// only stamped, so the reason keeps the audit trail readable.
type LeaveReason string

const (
	LeaveReasonLeft         LeaveReason = "left"
	LeaveReasonKicked       LeaveReason = "kicked"
	LeaveReasonSuspended    LeaveReason = "suspended"
	LeaveReasonBanned       LeaveReason = "banned"
	LeaveReasonRoomArchived LeaveReason = "room_archived"
)

// RoomMembership links a user to a support room. LeftAt == nil means active.
//
// The group and stage columns are denormalized from the room so the
// one-active-membership-per-(user, group, stage) rule can be checked without
// a join on the hot path. The partial unique index enforces that rule when
// two joins for the same pair race past the dedup check.
type RoomMembership struct {
	ID             string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	RoomID         uint         `gorm:"not null;index:idx_memberships_room_active,priority:1" json:"room_id"`
	Room           *SupportRoom `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	UserID         uint         `gorm:"not null;index:idx_memberships_user_active,priority:1;uniqueIndex:idx_memberships_one_per_pair,priority:1,where:left_at IS NULL" json:"user_id"`
	User           *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SupportGroupID uint         `gorm:"not null;uniqueIndex:idx_memberships_one_per_pair,priority:2" json:"support_group_id"`
	Stage          Stage        `gorm:"type:varchar(20);not null;uniqueIndex:idx_memberships_one_per_pair,priority:3" json:"stage"`
	JoinedAt       time.Time    `gorm:"not null" json:"joined_at"`
	LeftAt         *time.Time   `gorm:"index:idx_memberships_room_active,priority:2;index:idx_memberships_user_active,priority:2" json:"left_at,omitempty"`
	LeaveReason    LeaveReason  `gorm:"type:varchar(20);default:''" json:"leave_reason,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (RoomMembership) TableName() string {
	return "room_memberships"
}

// BeforeCreate assigns the synthetic id.
func (m *RoomMembership) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Active reports whether the membership has not been ended.
func (m *RoomMembership) Active() bool {
	return m.LeftAt == nil
}
