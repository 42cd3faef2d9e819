// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	ShouldClean bool
}

// Seed populates the database with demo users distributed across rooms in
// the built-in support groups.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users...", opts.NumUsers)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	if err := SupportGroups(db); err != nil {
		return fmt.Errorf("failed to seed built-in support groups: %w", err)
	}

	var groups []models.SupportGroup
	if err := db.Find(&groups).Error; err != nil {
		return fmt.Errorf("failed to load support groups: %w", err)
	}

	factory := NewFactory(db, SeedOptions{})

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			log.Printf("Failed to create demo user: %v", err)
			continue
		}
		users = append(users, user)
	}
	log.Printf("%d demo users created", len(users))

	if err := placeUsers(db, factory, groups, users); err != nil {
		return fmt.Errorf("failed to place demo users: %w", err)
	}

	log.Println("Database seeding completed successfully")
	return nil
}

// placeUsers spreads the demo users over (group, stage) pairs, filling rooms
// in sequence the same way the allocator would.
func placeUsers(db *gorm.DB, factory *Factory, groups []models.SupportGroup, users []*models.User) error {
	if len(groups) == 0 || len(users) == 0 {
		return nil
	}

	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	type pairKey struct {
		groupID uint
		stage   models.Stage
	}
	rooms := make(map[pairKey]*models.SupportRoom)

	for _, user := range users {
		group := groups[r.Intn(len(groups))]
		stage := models.KnownStages[r.Intn(len(models.KnownStages))]
		key := pairKey{groupID: group.ID, stage: stage}

		room := rooms[key]
		if room == nil || !room.HasCapacity() {
			next, err := factory.CreateRoom(group.ID, stage)
			if err != nil {
				return err
			}
			rooms[key] = next
			room = next
		}

		if _, err := factory.CreateMembership(room, user.ID); err != nil {
			return err
		}
	}

	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE moderation_actions, room_memberships, support_rooms, messages, journal_posts, comments, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}
