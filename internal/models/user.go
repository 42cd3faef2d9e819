// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStatus defines the account standing of a user.
type UserStatus string

const (
	// UserStatusActive indicates a user in good standing.
	UserStatusActive UserStatus = "active"
	// UserStatusSuspended indicates a temporary suspension with an expiry.
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusBanned indicates a permanent ban.
	UserStatusBanned UserStatus = "banned"
)

// User represents a member of the AuraWell community.
//
// Status and SuspendedUntil drive join eligibility. A suspended user whose
// SuspendedUntil has passed must be treated as active by every reader; the
// status gate performs that lazy transition.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"unique;not null" json:"username"`
	Email          string         `gorm:"unique;not null" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	DisplayName    string         `json:"display_name"`
	Bio            string         `json:"bio"`
	IsModerator    bool           `gorm:"not null;default:false" json:"is_moderator"`
	Status         UserStatus     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	SuspendedUntil *time.Time     `json:"suspended_until,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
