package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kidship/messaging/internal/models"
)

// Conversations is the one-shot form of the live conversation list: the
// same join of rooms, counterpart profiles, and latest messages, computed
// once for the REST surface.
func (s *Service) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rooms, err := s.store.RoomsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room set: %w", err)
	}

	counterparts := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if id := r.Counterpart(userID); id != "" {
			counterparts = append(counterparts, id)
		}
	}
	profiles, err := s.resolver.ResolveMany(ctx, counterparts)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	list := make([]models.Conversation, 0, len(rooms))
	for _, r := range rooms {
		counterpartID := r.Counterpart(userID)
		if counterpartID == "" {
			continue
		}
		c := models.Conversation{
			RoomID:          r.ID,
			Counterpart:     byID[counterpartID],
			LastMessageText: NoMessagesPlaceholder,
		}
		msg, err := s.store.LatestMessage(ctx, r.ID)
		if err != nil {
			// Show the room with its placeholder rather than failing
			// the whole list over one room.
			slog.Error("failed to load latest message", "room_id", r.ID, "error", err)
		} else if msg != nil {
			c.LastMessageText = msg.Text
			t := msg.CreatedAt
			c.LastMessageAt = &t
		}
		list = append(list, c)
	}

	sortByRecency(list)
	return list, nil
}
