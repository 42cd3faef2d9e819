package models

import "time"

// RoomStatus defines the lifecycle state of a support room.
type RoomStatus string

const (
	// RoomStatusOpen indicates a room accepting new members.
	RoomStatusOpen RoomStatus = "open"
	// RoomStatusFull indicates a room at capacity.
	RoomStatusFull RoomStatus = "full"
	// RoomStatusArchived indicates a room closed by moderation. Terminal.
	RoomStatusArchived RoomStatus = "archived"
)

// SupportRoom is a capacity-bounded discussion room for one (group, stage)
// pair. RoomNumber is assigned at creation, strictly increasing per pair and
// never reused; the composite unique index is the safety net for concurrent
// creators computing the same next number.
type SupportRoom struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	SupportGroupID uint          `gorm:"not null;uniqueIndex:idx_rooms_group_stage_number,priority:1;index:idx_rooms_group_stage_status,priority:1" json:"support_group_id"`
	SupportGroup   *SupportGroup `gorm:"foreignKey:SupportGroupID" json:"support_group,omitempty"`
	Stage          Stage         `gorm:"type:varchar(20);not null;uniqueIndex:idx_rooms_group_stage_number,priority:2;index:idx_rooms_group_stage_status,priority:2" json:"stage"`
	RoomNumber     int           `gorm:"not null;uniqueIndex:idx_rooms_group_stage_number,priority:3" json:"room_number"`
	MemberCount    int           `gorm:"not null;default:0" json:"member_count"`
	MaxMembers     int           `gorm:"not null" json:"max_members"`
	Status         RoomStatus    `gorm:"type:varchar(20);not null;default:'open';index:idx_rooms_group_stage_status,priority:3" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SupportRoom) TableName() string {
	return "support_rooms"
}

// HasCapacity reports whether the room can take one more member.
func (r *SupportRoom) HasCapacity() bool {
	return r.Status == RoomStatusOpen && r.MemberCount < r.MaxMembers
}

// StatusForCount returns the status a non-archived room should carry for the
// given member count.
func (r *SupportRoom) StatusForCount(count int) RoomStatus {
	if r.Status == RoomStatusArchived {
		return RoomStatusArchived
	}
	if count >= r.MaxMembers {
		return RoomStatusFull
	}
	return RoomStatusOpen
}
