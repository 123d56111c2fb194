// Package messaging implements the conversation core: deterministic room
// identity, live message streams, and the per-user conversation list that
// joins rooms, latest messages, and counterpart profiles.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kidship/messaging/internal/live"
	"github.com/kidship/messaging/internal/models"
	"github.com/kidship/messaging/internal/store"
)

var (
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrNotParticipant = errors.New("sender is not a participant of the room")
	ErrRoomNotFound   = errors.New("room not found")
)

const (
	// queryTimeout bounds the blocking store calls behind subscriptions.
	queryTimeout = 5 * time.Second

	// maxStreamMessages caps the snapshot size of one message-stream
	// emission; rooms larger than this show the most recent window.
	maxStreamMessages = 200

	// NoMessagesPlaceholder stands in for the latest message of a room
	// that has none yet.
	NoMessagesPlaceholder = "No messages yet"
)

func roomTopic(roomID string) string       { return "room:" + roomID }
func membershipTopic(userID string) string { return "rooms:" + userID }

// profileTopic carries profile-update events; the payload is the user id.
// Every instance invalidates its resolver cache on receipt.
const profileTopic = "users:profile"

type Service struct {
	store    store.Store
	broker   live.Broker
	resolver *Resolver

	ensureTimeout time.Duration
}

func NewService(st store.Store, broker live.Broker) *Service {
	s := &Service{
		store:         st,
		broker:        broker,
		resolver:      NewResolver(st),
		ensureTimeout: 5 * time.Second,
	}
	broker.Subscribe(profileTopic, func(payload []byte) {
		s.resolver.Invalidate(string(payload))
	})
	return s
}

func (s *Service) Resolver() *Resolver { return s.resolver }

// ProfileUpdated announces that a user's stored profile changed. The event
// reaches every instance's resolver cache through the broker, including
// this one's.
func (s *Service) ProfileUpdated(userID string) {
	if err := s.broker.Publish(profileTopic, []byte(userID)); err != nil {
		slog.Error("failed to publish profile update", "user_id", userID, "error", err)
	}
}

// Room returns an existing room, or ErrRoomNotFound.
func (s *Service) Room(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", roomID, err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}
