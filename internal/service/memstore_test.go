package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
)

// memStore is a mutex-guarded in-memory store implementing the allocation
// repositories. Each method is its own critical section, so the gaps between
// find, reserve and register interleave across goroutines exactly like they
// do against a real database. Used for the concurrency tests where sqlite's
// single-writer lock would serialize the race away.
type memStore struct {
	mu          sync.Mutex
	rooms       map[uint]*models.SupportRoom
	memberships map[string]*models.RoomMembership
	groups      map[uint]*models.SupportGroup
	users       map[uint]*models.User
	nextRoomID  uint
}

func newMemStore() *memStore {
	return &memStore{
		rooms:       make(map[uint]*models.SupportRoom),
		memberships: make(map[string]*models.RoomMembership),
		groups:      make(map[uint]*models.SupportGroup),
		users:       make(map[uint]*models.User),
	}
}

func (s *memStore) addGroup(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[id] = &models.SupportGroup{ID: id, Name: "Group", Slug: "group"}
}

func (s *memStore) addUser(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &models.User{ID: id, Status: models.UserStatusActive}
}

func (s *memStore) roomSnapshot() []*models.SupportRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.SupportRoom, 0, len(s.rooms))
	for _, r := range s.rooms {
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out
}

func (s *memStore) activeMembershipCount(userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memberships {
		if m.UserID == userID && m.LeftAt == nil {
			n++
		}
	}
	return n
}

// memRooms implements repository.RoomRepository over memStore.
type memRooms struct{ store *memStore }

func (r *memRooms) GetByID(_ context.Context, id uint) (*models.SupportRoom, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	room, ok := r.store.rooms[id]
	if !ok {
		return nil, models.NewNotFoundError("Room", id)
	}
	copied := *room
	return &copied, nil
}

func (r *memRooms) Create(_ context.Context, room *models.SupportRoom) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.rooms {
		if existing.SupportGroupID == room.SupportGroupID &&
			existing.Stage == room.Stage &&
			existing.RoomNumber == room.RoomNumber {
			return models.ErrRoomConflict
		}
	}
	r.store.nextRoomID++
	room.ID = r.store.nextRoomID
	copied := *room
	r.store.rooms[room.ID] = &copied
	return nil
}

func (r *memRooms) FindOpenRoom(_ context.Context, groupID uint, stage models.Stage) (*models.SupportRoom, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var best *models.SupportRoom
	for _, room := range r.store.rooms {
		if room.SupportGroupID != groupID || room.Stage != stage {
			continue
		}
		if room.Status != models.RoomStatusOpen || room.MemberCount >= room.MaxMembers {
			continue
		}
		if best == nil || room.RoomNumber < best.RoomNumber {
			best = room
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (r *memRooms) MaxRoomNumber(_ context.Context, groupID uint, stage models.Stage) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	highest := 0
	for _, room := range r.store.rooms {
		if room.SupportGroupID == groupID && room.Stage == stage && room.RoomNumber > highest {
			highest = room.RoomNumber
		}
	}
	return highest, nil
}

func (r *memRooms) ReserveSlot(_ context.Context, room *models.SupportRoom) error {
	if !room.HasCapacity() {
		return models.ErrRoomConflict
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.rooms[room.ID]
	if !ok || current.Status != models.RoomStatusOpen || current.MemberCount != room.MemberCount {
		return models.ErrRoomConflict
	}
	current.MemberCount++
	current.Status = current.StatusForCount(current.MemberCount)
	room.MemberCount = current.MemberCount
	room.Status = current.Status
	return nil
}

func (r *memRooms) ReleaseSlot(_ context.Context, roomID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	room, ok := r.store.rooms[roomID]
	if !ok || room.Status == models.RoomStatusArchived {
		return nil
	}
	if room.MemberCount > 0 {
		room.MemberCount--
	}
	if room.Status == models.RoomStatusFull {
		room.Status = models.RoomStatusOpen
	}
	return nil
}

func (r *memRooms) Archive(_ context.Context, roomID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	room, ok := r.store.rooms[roomID]
	if !ok || room.Status == models.RoomStatusArchived {
		return models.NewNotFoundError("Room", roomID)
	}
	room.Status = models.RoomStatusArchived
	return nil
}

func (r *memRooms) ListByGroupStage(_ context.Context, groupID uint, stage models.Stage) ([]*models.SupportRoom, error) {
	var out []*models.SupportRoom
	for _, room := range r.store.roomSnapshot() {
		if room.SupportGroupID == groupID && room.Stage == stage {
			out = append(out, room)
		}
	}
	return out, nil
}

// memMemberships implements repository.MembershipRepository over memStore.
type memMemberships struct{ store *memStore }

func (r *memMemberships) Create(_ context.Context, m *models.RoomMembership) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.memberships {
		if existing.UserID == m.UserID && existing.SupportGroupID == m.SupportGroupID &&
			existing.Stage == m.Stage && existing.LeftAt == nil {
			return models.ErrRoomConflict
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	copied := *m
	copied.Room = nil
	r.store.memberships[m.ID] = &copied
	return nil
}

func (r *memMemberships) GetActive(_ context.Context, roomID, userID uint) (*models.RoomMembership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.memberships {
		if m.RoomID == roomID && m.UserID == userID && m.LeftAt == nil {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memMemberships) GetActiveForUserInPair(_ context.Context, userID, groupID uint, stage models.Stage) (*models.RoomMembership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.memberships {
		if m.UserID == userID && m.SupportGroupID == groupID && m.Stage == stage && m.LeftAt == nil {
			copied := *m
			if room, ok := r.store.rooms[m.RoomID]; ok {
				roomCopy := *room
				copied.Room = &roomCopy
			}
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memMemberships) GetActiveForUser(_ context.Context, userID uint) ([]*models.RoomMembership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.RoomMembership
	for _, m := range r.store.memberships {
		if m.UserID == userID && m.LeftAt == nil {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memMemberships) GetActiveForRoom(_ context.Context, roomID uint) ([]*models.RoomMembership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.RoomMembership
	for _, m := range r.store.memberships {
		if m.RoomID == roomID && m.LeftAt == nil {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memMemberships) End(_ context.Context, membershipID string, reason models.LeaveReason) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.memberships[membershipID]
	if !ok || m.LeftAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	m.LeftAt = &now
	m.LeaveReason = reason
	return true, nil
}

func (r *memMemberships) CountActiveForRoom(_ context.Context, roomID uint) (int64, error) {
	members, _ := r.GetActiveForRoom(context.Background(), roomID)
	return int64(len(members)), nil
}

// memGroups implements repository.GroupRepository over memStore.
type memGroups struct{ store *memStore }

func (r *memGroups) GetByID(_ context.Context, id uint) (*models.SupportGroup, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	g, ok := r.store.groups[id]
	if !ok {
		return nil, models.NewNotFoundError("Support group", id)
	}
	copied := *g
	return &copied, nil
}

func (r *memGroups) GetBySlug(_ context.Context, slug string) (*models.SupportGroup, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, g := range r.store.groups {
		if g.Slug == slug {
			copied := *g
			return &copied, nil
		}
	}
	return nil, models.NewNotFoundError("Support group", slug)
}

func (r *memGroups) List(_ context.Context) ([]*models.SupportGroup, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.SupportGroup
	for _, g := range r.store.groups {
		copied := *g
		out = append(out, &copied)
	}
	return out, nil
}

// memUsers implements repository.UserRepository over memStore.
type memUsers struct{ store *memStore }

func (r *memUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	copied := *u
	return &copied, nil
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.NewNotFoundError("User", username)
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUsers) Create(_ context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = uint(len(r.store.users) + 1)
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *memUsers) SetStatus(_ context.Context, userID uint, status models.UserStatus, suspendedUntil *time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[userID]
	if !ok {
		return models.NewNotFoundError("User", userID)
	}
	u.Status = status
	u.SuspendedUntil = suspendedUntil
	return nil
}

func (r *memUsers) IsModerator(_ context.Context, userID uint) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[userID]
	if !ok {
		return false, nil
	}
	return u.IsModerator, nil
}
