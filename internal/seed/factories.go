package seed

import (
	"fmt"
	"log"
	"time"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions tune factory behavior.
type SeedOptions struct {
	// SkipBcrypt stores a plain placeholder password instead of hashing.
	// Only for fast local seeding; never use outside development.
	SkipBcrypt bool
	// DryRun logs what would be created without touching the database.
	DryRun bool
	// RoomCapacity overrides the default room size for created rooms.
	RoomCapacity int
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts SeedOptions
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	if opts.RoomCapacity <= 0 {
		opts.RoomCapacity = 10
	}
	return &Factory{db: db, opts: opts, nextID: 1000}
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:    gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
		Bio:         gofakeit.Sentence(10),
		Status:      models.UserStatusActive,
	}

	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateModerator persists a user with the moderator role.
func (f *Factory) CreateModerator(overrides ...func(*models.User)) (*models.User, error) {
	withRole := append([]func(*models.User){func(u *models.User) {
		u.IsModerator = true
	}}, overrides...)
	return f.CreateUser(withRole...)
}

// CreateRoom persists the next room in sequence for the (group, stage) pair.
func (f *Factory) CreateRoom(groupID uint, stage models.Stage, overrides ...func(*models.SupportRoom)) (*models.SupportRoom, error) {
	room := &models.SupportRoom{
		SupportGroupID: groupID,
		Stage:          stage,
		MemberCount:    0,
		MaxMembers:     f.opts.RoomCapacity,
		Status:         models.RoomStatusOpen,
	}

	if !f.opts.DryRun {
		var highest int
		err := f.db.Model(&models.SupportRoom{}).
			Where("support_group_id = ? AND stage = ?", groupID, stage).
			Select("COALESCE(MAX(room_number), 0)").
			Scan(&highest).Error
		if err != nil {
			return nil, err
		}
		room.RoomNumber = highest + 1
	} else {
		f.nextID++
		room.RoomNumber = int(f.nextID)
	}

	for _, override := range overrides {
		override(room)
	}

	if f.opts.DryRun {
		f.nextID++
		room.ID = f.nextID
		log.Printf("[dry-run] CreateRoom: group=%d stage=%s number=%d", groupID, stage, room.RoomNumber)
		return room, nil
	}

	if err := f.db.Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

// CreateMembership persists an active membership and bumps the room's member
// count, flipping the room to full at capacity.
func (f *Factory) CreateMembership(room *models.SupportRoom, userID uint) (*models.RoomMembership, error) {
	membership := &models.RoomMembership{
		RoomID:         room.ID,
		UserID:         userID,
		SupportGroupID: room.SupportGroupID,
		Stage:          room.Stage,
		JoinedAt:       time.Now().UTC(),
	}

	if f.opts.DryRun {
		room.MemberCount++
		room.Status = room.StatusForCount(room.MemberCount)
		log.Printf("[dry-run] CreateMembership: room=%d user=%d", room.ID, userID)
		return membership, nil
	}

	if err := f.db.Create(membership).Error; err != nil {
		return nil, err
	}

	room.MemberCount++
	room.Status = room.StatusForCount(room.MemberCount)
	err := f.db.Model(&models.SupportRoom{}).
		Where("id = ?", room.ID).
		Updates(map[string]interface{}{
			"member_count": room.MemberCount,
			"status":       room.Status,
		}).Error
	if err != nil {
		return nil, err
	}
	return membership, nil
}
