package database

import "github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.SupportGroup{},
		&models.SupportRoom{},
		&models.RoomMembership{},
		&models.ModerationAction{},
		&models.Message{},
		&models.JournalPost{},
		&models.Comment{},
	}
}
