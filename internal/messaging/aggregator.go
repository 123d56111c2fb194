package messaging

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/kidship/messaging/internal/live"
	"github.com/kidship/messaging/internal/models"
)

// roomEntry tracks one room inside an aggregator. An entry starts tracked
// but not ready; prime moves it to ready (emittable) or dropped. Its
// latest-message subscription lives exactly as long as the room stays in
// the user's membership set.
type roomEntry struct {
	room        models.Room
	sub         *live.Subscription
	counterpart models.User

	ready   bool
	dropped bool
	lastMsg *models.Message
}

type aggregator struct {
	svc      *Service
	userID   string
	onUpdate func([]models.Conversation)

	mu            sync.Mutex
	closed        bool
	entries       map[string]*roomEntry
	membershipSub *live.Subscription

	// emitMu serializes deliveries so callers never observe snapshots
	// out of build order.
	emitMu sync.Mutex
}

// SubscribeConversations opens the live, merged conversation list for a
// user: one entry per room the user participates in, each carrying the
// counterpart's profile and the room's most recent message, re-emitted in
// full on every underlying change and ordered by most recent activity.
//
// Rooms entering the membership set get their own latest-message
// subscription; rooms leaving it have theirs cancelled on the next
// reconcile. A failure on one room's subscription leaves the other rooms
// untouched. Cancelling the returned subscription tears down the
// membership subscription and every per-room subscription.
func (s *Service) SubscribeConversations(userID string, onUpdate func([]models.Conversation)) *live.Subscription {
	a := &aggregator{
		svc:      s,
		userID:   userID,
		onUpdate: onUpdate,
		entries:  make(map[string]*roomEntry),
	}
	a.membershipSub = s.broker.Subscribe(membershipTopic(userID), func([]byte) { a.reconcile() })
	a.reconcile()
	return live.NewSubscription(a.close)
}

// reconcile diffs the stored room set against the tracked entries: new
// rooms are subscribed and primed, rooms no longer present are cancelled
// and removed.
func (a *aggregator) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	rooms, err := a.svc.store.RoomsForUser(ctx, a.userID)
	if err != nil {
		slog.Error("failed to load room set", "user_id", a.userID, "error", err)
		return
	}

	current := make(map[string]models.Room, len(rooms))
	for _, r := range rooms {
		current[r.ID] = r
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	for id, e := range a.entries {
		if _, ok := current[id]; !ok {
			e.sub.Cancel()
			delete(a.entries, id)
		}
	}
	var added []*roomEntry
	for id, r := range current {
		if _, ok := a.entries[id]; ok {
			continue
		}
		e := &roomEntry{room: r}
		roomID := id
		e.sub = a.svc.broker.Subscribe(roomTopic(roomID), func([]byte) { a.refresh(roomID) })
		a.entries[id] = e
		added = append(added, e)
	}
	a.mu.Unlock()

	for _, e := range added {
		a.prime(e)
	}
	a.emit()
}

// prime resolves the counterpart and loads the initial latest message for
// a newly tracked room. A room with no derivable counterpart, or whose
// profile lookup fails outright, is dropped from emissions but stays
// tracked so reconcile does not re-add it on every pass.
func (a *aggregator) prime(e *roomEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	counterpartID := e.room.Counterpart(a.userID)
	var counterpart models.User
	dropped := false
	if counterpartID == "" {
		dropped = true
	} else {
		profile, err := a.svc.resolver.Resolve(ctx, counterpartID)
		if err != nil {
			slog.Error("failed to resolve counterpart", "room_id", e.room.ID, "user_id", counterpartID, "error", err)
			dropped = true
		} else {
			counterpart = profile
		}
	}

	msg, err := a.svc.store.LatestMessage(ctx, e.room.ID)
	if err != nil {
		slog.Error("failed to load latest message", "room_id", e.room.ID, "error", err)
		msg = nil
	}

	a.mu.Lock()
	e.counterpart = counterpart
	e.dropped = dropped
	e.ready = true
	e.lastMsg = msg
	a.mu.Unlock()
}

// refresh reloads one room's latest message after a change event. A read
// failure keeps the stale entry rather than touching sibling rooms.
func (a *aggregator) refresh(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	msg, err := a.svc.store.LatestMessage(ctx, roomID)
	if err != nil {
		slog.Error("failed to load latest message", "room_id", roomID, "error", err)
		return
	}

	a.mu.Lock()
	e, ok := a.entries[roomID]
	if !ok || a.closed {
		a.mu.Unlock()
		return
	}
	e.lastMsg = msg
	a.mu.Unlock()
	a.emit()
}

func (a *aggregator) emit() {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	list := make([]models.Conversation, 0, len(a.entries))
	for _, e := range a.entries {
		if !e.ready || e.dropped {
			continue
		}
		c := models.Conversation{
			RoomID:          e.room.ID,
			Counterpart:     e.counterpart,
			LastMessageText: NoMessagesPlaceholder,
		}
		if e.lastMsg != nil {
			c.LastMessageText = e.lastMsg.Text
			t := e.lastMsg.CreatedAt
			c.LastMessageAt = &t
		}
		list = append(list, c)
	}
	a.mu.Unlock()

	sortByRecency(list)
	a.onUpdate(list)
}

// sortByRecency orders conversations most recent activity first; rooms
// with no messages sort last, by room id for a stable order.
func sortByRecency(list []models.Conversation) {
	sort.Slice(list, func(i, j int) bool {
		ti, tj := list[i].LastMessageAt, list[j].LastMessageAt
		switch {
		case ti == nil && tj == nil:
			return list[i].RoomID < list[j].RoomID
		case ti == nil:
			return false
		case tj == nil:
			return true
		case !ti.Equal(*tj):
			return ti.After(*tj)
		default:
			return list[i].RoomID < list[j].RoomID
		}
	})
}

func (a *aggregator) close() {
	a.mu.Lock()
	a.closed = true
	for id, e := range a.entries {
		e.sub.Cancel()
		delete(a.entries, id)
	}
	a.mu.Unlock()
	a.membershipSub.Cancel()
}
