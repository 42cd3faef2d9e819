package models

import "time"

// Stage identifies how far along a member is in their recovery journey.
// Rooms are segmented per (group, stage) so conversations stay among peers
// at a similar point.
type Stage string

const (
	// StageBeginner is for members in their first weeks.
	StageBeginner Stage = "beginner"
	// StageIntermediate is for members with some months behind them.
	StageIntermediate Stage = "intermediate"
	// StageAdvanced is for long-term members and mentors.
	StageAdvanced Stage = "advanced"
)

// KnownStages lists every stage a room can be allocated for.
var KnownStages = []Stage{StageBeginner, StageIntermediate, StageAdvanced}

// ValidStage reports whether s is an allocatable stage.
func ValidStage(s Stage) bool {
	for _, known := range KnownStages {
		if s == known {
			return true
		}
	}
	return false
}

// SupportGroup represents a peer support topic (e.g. grief, anxiety, sobriety).
type SupportGroup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Slug        string    `gorm:"size:48;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SupportGroup) TableName() string {
	return "support_groups"
}
