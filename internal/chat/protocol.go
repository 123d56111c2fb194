package chat

import (
	"encoding/json"

	"github.com/kidship/messaging/internal/models"
)

const (
	TypeConversationOpen = "conversation.open"
	TypeStreamOpen       = "stream.open"
	TypeStreamClose      = "stream.close"
	TypeMessageSend      = "message.send"
	TypePing             = "ping"

	TypeConversationReady   = "conversation.ready"
	TypeConversationsUpdate = "conversations.update"
	TypeMessagesUpdate      = "messages.update"
	TypePresenceUpdate      = "presence.update"
	TypeError               = "error"
	TypePong                = "pong"
)

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OpenConversationPayload starts (or re-opens) a conversation with another
// user. An explicit room id wins; otherwise the room id is derived from
// the participant pair.
type OpenConversationPayload struct {
	UserID string `json:"user_id"`
	RoomID string `json:"room_id,omitempty"`
}

type StreamPayload struct {
	RoomID string `json:"room_id"`
}

type SendMessagePayload struct {
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

type ConversationsUpdatePayload struct {
	Conversations []models.Conversation `json:"conversations"`
}

type MessagesUpdatePayload struct {
	RoomID   string           `json:"room_id"`
	Messages []models.Message `json:"messages"`
}

type PresenceUpdatePayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func NewWSMessage(msgType string, payload interface{}) ([]byte, error) {
	var p json.RawMessage
	if payload != nil {
		var err error
		p, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	msg := WSMessage{Type: msgType, Payload: p}
	return json.Marshal(msg)
}
