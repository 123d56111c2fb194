package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kidship/messaging/internal/messaging"
	"github.com/kidship/messaging/internal/models"
)

func HandleOpenConversation(c *Client, payload OpenConversationPayload) {
	if payload.UserID == "" && payload.RoomID == "" {
		sendError(c, "user_id or room_id is required", "INVALID_PAYLOAD")
		return
	}
	if payload.UserID == c.UserID {
		sendError(c, "cannot open a conversation with yourself", "INVALID_PAYLOAD")
		return
	}

	var room *models.Room
	var err error
	if payload.UserID == "" {
		// Re-opening a known conversation by its room id.
		room, err = c.hub.Service.Room(context.Background(), payload.RoomID)
		if errors.Is(err, messaging.ErrRoomNotFound) {
			sendError(c, "room not found", "ROOM_NOT_FOUND")
			return
		}
		if err == nil && !room.HasParticipant(c.UserID) {
			sendError(c, "not a participant of this room", "NOT_PARTICIPANT")
			return
		}
	} else {
		room, err = c.hub.Service.EnsureRoom(context.Background(), payload.RoomID, []string{c.UserID, payload.UserID})
	}
	if err != nil {
		slog.Error("failed to open conversation", "error", err, "user_id", c.UserID)
		sendError(c, "failed to open conversation", "INTERNAL_ERROR")
		return
	}

	data, err := NewWSMessage(TypeConversationReady, room)
	if err != nil {
		return
	}
	c.trySend(data)
}

func HandleStreamOpen(c *Client, payload StreamPayload) {
	if payload.RoomID == "" {
		sendError(c, "room_id is required", "INVALID_PAYLOAD")
		return
	}

	room, err := c.hub.Service.Room(context.Background(), payload.RoomID)
	if err != nil {
		if errors.Is(err, messaging.ErrRoomNotFound) {
			sendError(c, "room not found", "ROOM_NOT_FOUND")
		} else {
			slog.Error("failed to load room", "error", err, "room_id", payload.RoomID)
			sendError(c, "failed to open stream", "INTERNAL_ERROR")
		}
		return
	}
	if !room.HasParticipant(c.UserID) {
		sendError(c, "not a participant of this room", "NOT_PARTICIPANT")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, open := c.streams[payload.RoomID]; open {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	roomID := payload.RoomID
	sub := c.hub.Service.SubscribeMessages(roomID, func(msgs []models.Message) {
		data, err := NewWSMessage(TypeMessagesUpdate, MessagesUpdatePayload{
			RoomID:   roomID,
			Messages: msgs,
		})
		if err != nil {
			return
		}
		c.trySend(data)
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Cancel()
		return
	}
	if _, open := c.streams[roomID]; open {
		// Lost the race with a duplicate open; keep the first.
		c.mu.Unlock()
		sub.Cancel()
		return
	}
	c.streams[roomID] = sub
	c.mu.Unlock()
}

func HandleStreamClose(c *Client, payload StreamPayload) {
	c.mu.Lock()
	sub, ok := c.streams[payload.RoomID]
	if ok {
		delete(c.streams, payload.RoomID)
	}
	c.mu.Unlock()
	if ok {
		sub.Cancel()
	}
}

func HandleSendMessage(c *Client, payload SendMessagePayload) {
	if payload.RoomID == "" {
		sendError(c, "room_id is required", "INVALID_PAYLOAD")
		return
	}

	_, err := c.hub.Service.Send(context.Background(), payload.RoomID, c.UserID, payload.Text)
	switch {
	case errors.Is(err, messaging.ErrEmptyMessage):
		sendError(c, "message text is empty", "EMPTY_MESSAGE")
	case errors.Is(err, messaging.ErrRoomNotFound):
		sendError(c, "room not found", "ROOM_NOT_FOUND")
	case errors.Is(err, messaging.ErrNotParticipant):
		sendError(c, "not a participant of this room", "NOT_PARTICIPANT")
	case err != nil:
		slog.Error("failed to send message", "error", err, "room_id", payload.RoomID)
		sendError(c, "failed to send message", "INTERNAL_ERROR")
	}
}

func sendError(c *Client, message, code string) {
	data, _ := NewWSMessage(TypeError, ErrorPayload{
		Message: message,
		Code:    code,
	})
	c.trySend(data)
}
