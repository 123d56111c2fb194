package store

import (
	"context"
	"time"

	"github.com/kidship/messaging/internal/models"
)

// Store is the persistence seam for users, rooms, and messages. Lookups
// return (nil, nil) when the record does not exist; timestamps on created
// records are always assigned by the store, never by the caller.
type Store interface {
	CreateUser(ctx context.Context, u models.User) (*models.User, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName, avatarURL string) (*models.User, error)

	// EnsureRoom creates the room if absent and reports whether a new
	// record was written. Re-invocation on an existing room is a plain
	// read; participants are never overwritten.
	EnsureRoom(ctx context.Context, id string, participants []string) (*models.Room, bool, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	RoomsForUser(ctx context.Context, userID string) ([]models.Room, error)

	AppendMessage(ctx context.Context, roomID, senderID, text string) (*models.Message, error)
	// Messages reads the newest messages first. A zero before reads from
	// the newest message; otherwise only messages older than before are
	// returned.
	Messages(ctx context.Context, roomID string, before time.Time, limit int) ([]models.Message, error)
	LatestMessage(ctx context.Context, roomID string) (*models.Message, error)
}
