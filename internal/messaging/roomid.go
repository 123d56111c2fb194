package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kidship/messaging/internal/models"
)

const roomIDSeparator = "_"

// RoomIDFor derives the canonical room id for a pair of users. The pair is
// sorted lexicographically first, so both sides of a conversation converge
// on the same id no matter who initiates contact.
func RoomIDFor(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + roomIDSeparator + b
}

// GroupRoomID is the N-participant generalization of RoomIDFor.
func GroupRoomID(participants []string) string {
	ids := append([]string(nil), participants...)
	sort.Strings(ids)
	return strings.Join(ids, roomIDSeparator)
}

// EnsureRoom locates or lazily creates the room for the given participants.
// An explicit non-empty id wins; otherwise the id is derived from the
// sorted participant set. Calling it again for the same participants is a
// plain read. The call is bounded by the service's ensure timeout since it
// is the one blocking step on the open-conversation path.
func (s *Service) EnsureRoom(ctx context.Context, id string, participants []string) (*models.Room, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("room requires at least two participants, got %d", len(participants))
	}
	if id == "" {
		id = GroupRoomID(participants)
	}

	ctx, cancel := context.WithTimeout(ctx, s.ensureTimeout)
	defer cancel()

	room, created, err := s.store.EnsureRoom(ctx, id, participants)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure room %s: %w", id, err)
	}
	if created {
		for _, p := range room.Participants {
			if err := s.broker.Publish(membershipTopic(p), []byte(room.ID)); err != nil {
				slog.Error("failed to publish membership change", "user_id", p, "room_id", room.ID, "error", err)
			}
		}
	}
	return room, nil
}
