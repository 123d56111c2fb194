package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kidship/messaging/internal/models"
)

// Memory is an in-process Store used by tests and local development. Its
// clock is strictly monotonic so two appends never share a timestamp, which
// mirrors the total per-room order the Postgres store gets from NOW().
type Memory struct {
	mu       sync.Mutex
	users    map[string]models.User
	rooms    map[string]models.Room
	messages map[string][]models.Message
	lastTime time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]models.User),
		rooms:    make(map[string]models.Room),
		messages: make(map[string][]models.Message),
	}
}

// now must be called with mu held.
func (m *Memory) now() time.Time {
	t := time.Now().UTC()
	if !t.After(m.lastTime) {
		t = m.lastTime.Add(time.Microsecond)
	}
	m.lastTime = t
	return t
}

func (m *Memory) CreateUser(_ context.Context, u models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	out := u
	return &out, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) UsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := []models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (m *Memory) SearchUsers(_ context.Context, query string, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	users := []models.User{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].LastName != users[j].LastName {
			return users[i].LastName < users[j].LastName
		}
		return users[i].FirstName < users[j].FirstName
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *Memory) UpdateProfile(_ context.Context, id, firstName, lastName, avatarURL string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.FirstName = firstName
	u.LastName = lastName
	u.AvatarURL = avatarURL
	m.users[id] = u
	out := u
	return &out, nil
}

func (m *Memory) EnsureRoom(_ context.Context, id string, participants []string) (*models.Room, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		out := r
		return &out, false, nil
	}
	r := models.Room{
		ID:           id,
		Participants: append([]string(nil), participants...),
		CreatedAt:    m.now(),
	}
	m.rooms[id] = r
	out := r
	return &out, true, nil
}

func (m *Memory) GetRoom(_ context.Context, id string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, nil
	}
	out := r
	return &out, nil
}

func (m *Memory) RoomsForUser(_ context.Context, userID string) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := []models.Room{}
	for _, r := range m.rooms {
		if r.HasParticipant(userID) {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

// RemoveRoom exists for membership-change scenarios in tests; the service
// itself never deletes rooms.
func (m *Memory) RemoveRoom(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
	delete(m.messages, id)
}

func (m *Memory) AppendMessage(_ context.Context, roomID, senderID, text string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := models.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: m.now(),
	}
	m.messages[roomID] = append(m.messages[roomID], msg)
	out := msg
	return &out, nil
}

func (m *Memory) Messages(_ context.Context, roomID string, before time.Time, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := []models.Message{}
	all := m.messages[roomID]
	for i := len(all) - 1; i >= 0 && len(msgs) < limit; i-- {
		if before.IsZero() || all[i].CreatedAt.Before(before) {
			msgs = append(msgs, all[i])
		}
	}
	return msgs, nil
}

func (m *Memory) LatestMessage(_ context.Context, roomID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[roomID]
	if len(all) == 0 {
		return nil, nil
	}
	out := all[len(all)-1]
	return &out, nil
}
