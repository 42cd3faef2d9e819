package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/database"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/repository"
)

// fixture bundles a migrated sqlite database with real repositories so
// service tests exercise the same SQL paths production runs.
type fixture struct {
	db          *gorm.DB
	users       repository.UserRepository
	rooms       repository.RoomRepository
	memberships repository.MembershipRepository
	groups      repository.GroupRepository
	actions     repository.ModerationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on the
	// same in-memory instance.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	return &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		rooms:       repository.NewRoomRepository(db),
		memberships: repository.NewMembershipRepository(db),
		groups:      repository.NewGroupRepository(db),
		actions:     repository.NewModerationRepository(db),
	}
}

func (f *fixture) createUser(t *testing.T, status models.UserStatus) *models.User {
	t.Helper()
	name := "user-" + uuid.NewString()[:8]
	user := &models.User{
		Username: name,
		Email:    name + "@example.com",
		Password: "hashed",
		Status:   status,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createModerator(t *testing.T) *models.User {
	t.Helper()
	mod := f.createUser(t, models.UserStatusActive)
	require.NoError(t, f.db.Model(mod).Update("is_moderator", true).Error)
	mod.IsModerator = true
	return mod
}

func (f *fixture) createGroup(t *testing.T) *models.SupportGroup {
	t.Helper()
	slug := "group-" + uuid.NewString()[:8]
	group := &models.SupportGroup{Name: "Group " + slug, Slug: slug}
	require.NoError(t, f.db.Create(group).Error)
	return group
}

func (f *fixture) createRoom(t *testing.T, groupID uint, stage models.Stage, number, maxMembers int) *models.SupportRoom {
	t.Helper()
	room := &models.SupportRoom{
		SupportGroupID: groupID,
		Stage:          stage,
		RoomNumber:     number,
		MaxMembers:     maxMembers,
		Status:         models.RoomStatusOpen,
	}
	require.NoError(t, f.db.Create(room).Error)
	return room
}

func (f *fixture) reloadRoom(t *testing.T, id uint) *models.SupportRoom {
	t.Helper()
	var room models.SupportRoom
	require.NoError(t, f.db.First(&room, id).Error)
	return &room
}

func (f *fixture) reloadUser(t *testing.T, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, f.db.First(&user, id).Error)
	return &user
}

func (f *fixture) activeMemberships(t *testing.T, userID uint) []*models.RoomMembership {
	t.Helper()
	var out []*models.RoomMembership
	require.NoError(t, f.db.Where("user_id = ? AND left_at IS NULL", userID).Find(&out).Error)
	return out
}

func (f *fixture) auditRows(t *testing.T) []*models.ModerationAction {
	t.Helper()
	var out []*models.ModerationAction
	require.NoError(t, f.db.Order("id ASC").Find(&out).Error)
	return out
}

func (f *fixture) allocator(cfg AllocatorConfig) *RoomAllocator {
	a := NewRoomAllocator(f.rooms, f.memberships, f.groups, NewStatusGate(f.users), cfg)
	a.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return a
}
