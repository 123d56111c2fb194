package models

import "time"

// Conversation is a read-only projection of a room, the counterpart's
// profile, and the room's most recent message. It has no identity of its
// own beyond the room id and is recomputed on every underlying change.
type Conversation struct {
	RoomID          string     `json:"room_id"`
	Counterpart     User       `json:"counterpart"`
	LastMessageText string     `json:"last_message_text"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
}
