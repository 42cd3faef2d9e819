// Package repository implements the durable storage boundary for rooms,
// memberships, user standing and the moderation audit log.
package repository

import (
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/database"

	"gorm.io/gorm"
)

// readDB routes read-only queries to the replica when one is configured.
// Allocation-path reads stay on the primary: the reserve/retry loop depends
// on reading its own writes.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}
