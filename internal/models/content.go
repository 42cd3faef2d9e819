package models

import "time"

// Message is a chat message inside a support room. Only the fields the
// moderation engine touches live here; delivery is handled elsewhere.
type Message struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	RoomID          uint       `gorm:"not null;index" json:"room_id"`
	AuthorID        uint       `gorm:"not null;index" json:"author_id"`
	Body            string     `gorm:"type:text;not null" json:"body"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	DeletedByUserID *uint      `json:"deleted_by_user_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// JournalPost is a shared journal entry. Soft-deleted by moderation only.
type JournalPost struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AuthorID        uint       `gorm:"not null;index" json:"author_id"`
	Title           string     `gorm:"size:200" json:"title"`
	Body            string     `gorm:"type:text;not null" json:"body"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	DeletedByUserID *uint      `json:"deleted_by_user_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Comment is a reply on a journal post. Soft-deleted by moderation only.
type Comment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	JournalPostID   uint       `gorm:"not null;index" json:"journal_post_id"`
	AuthorID        uint       `gorm:"not null;index" json:"author_id"`
	Body            string     `gorm:"type:text;not null" json:"body"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	DeletedByUserID *uint      `json:"deleted_by_user_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
