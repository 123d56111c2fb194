package messaging

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kidship/messaging/internal/models"
	"github.com/kidship/messaging/internal/store"
)

// DefaultAvatarURL is the avatar shown for placeholder profiles.
const DefaultAvatarURL = "/static/avatars/default.png"

// Placeholder is the profile returned for user ids that have no stored
// record. It is deterministic: repeated calls for the same id are equal.
// DisplayName on a placeholder yields "Unknown user".
func Placeholder(userID string) models.User {
	return models.User{ID: userID, AvatarURL: DefaultAvatarURL}
}

// Resolver fetches user profiles referenced by rooms and messages. Found
// profiles are cached until invalidated; placeholders are never cached so
// a profile created later is picked up on the next lookup. Concurrent
// lookups for the same id collapse into one store read.
type Resolver struct {
	store store.Store
	sf    singleflight.Group

	mu    sync.Mutex
	cache map[string]models.User
}

func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st, cache: make(map[string]models.User)}
}

// Resolve returns the profile for userID, or a placeholder when no record
// exists. An error means the backend read itself failed.
func (r *Resolver) Resolve(ctx context.Context, userID string) (models.User, error) {
	r.mu.Lock()
	if u, ok := r.cache[userID]; ok {
		r.mu.Unlock()
		return u, nil
	}
	r.mu.Unlock()

	v, err, _ := r.sf.Do(userID, func() (interface{}, error) {
		u, err := r.store.UserByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user %s: %w", userID, err)
		}
		if u == nil {
			return Placeholder(userID), nil
		}
		r.mu.Lock()
		r.cache[userID] = *u
		r.mu.Unlock()
		return *u, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return v.(models.User), nil
}

// ResolveMany resolves a batch of ids, de-duplicating before any lookup.
// The result preserves first-occurrence order of the input and substitutes
// placeholders for missing records.
func (r *Resolver) ResolveMany(ctx context.Context, userIDs []string) ([]models.User, error) {
	order := make([]string, 0, len(userIDs))
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	found := make(map[string]models.User, len(order))
	var misses []string
	r.mu.Lock()
	for _, id := range order {
		if u, ok := r.cache[id]; ok {
			found[id] = u
		} else {
			misses = append(misses, id)
		}
	}
	r.mu.Unlock()

	if len(misses) > 0 {
		users, err := r.store.UsersByIDs(ctx, misses)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve users: %w", err)
		}
		r.mu.Lock()
		for _, u := range users {
			found[u.ID] = u
			r.cache[u.ID] = u
		}
		r.mu.Unlock()
	}

	out := make([]models.User, 0, len(order))
	for _, id := range order {
		if u, ok := found[id]; ok {
			out = append(out, u)
		} else {
			out = append(out, Placeholder(id))
		}
	}
	return out, nil
}

// Invalidate drops the cached profile for userID so the next Resolve
// re-reads the store.
func (r *Resolver) Invalidate(userID string) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}
