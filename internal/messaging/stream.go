package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kidship/messaging/internal/live"
	"github.com/kidship/messaging/internal/models"
)

// Send validates and appends a message to a room. Empty or whitespace-only
// text is rejected before any store call. The store assigns the timestamp;
// the caller's clock is never part of message ordering.
func (s *Service) Send(ctx context.Context, roomID, senderID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", roomID, err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if !room.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	msg, err := s.store.AppendMessage(ctx, roomID, senderID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	if err := s.broker.Publish(roomTopic(roomID), []byte(msg.ID)); err != nil {
		slog.Error("failed to publish message event", "room_id", roomID, "error", err)
	}
	return msg, nil
}

// SubscribeMessages opens a live subscription on a room's messages. Every
// emission carries the full current set ordered newest first; callers
// replace their copy wholesale rather than patching it. An emission happens
// immediately on subscribe and again after every append to the room.
// Cancelling the returned subscription releases the live query.
func (s *Service) SubscribeMessages(roomID string, onUpdate func([]models.Message)) *live.Subscription {
	var mu sync.Mutex
	emit := func() {
		mu.Lock()
		defer mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		// Zero before: the snapshot always starts at the newest message.
		msgs, err := s.store.Messages(ctx, roomID, time.Time{}, maxStreamMessages)
		if err != nil {
			slog.Error("failed to load message snapshot", "room_id", roomID, "error", err)
			return
		}
		onUpdate(msgs)
	}

	sub := s.broker.Subscribe(roomTopic(roomID), func([]byte) { emit() })
	emit()
	return sub
}

// Messages is the one-shot paged read used by the history endpoint.
func (s *Service) Messages(ctx context.Context, roomID, userID string, before time.Time, limit int) ([]models.Message, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", roomID, err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if !room.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return s.store.Messages(ctx, roomID, before, limit)
}
