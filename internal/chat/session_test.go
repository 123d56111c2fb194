package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kidship/messaging/internal/live"
	"github.com/kidship/messaging/internal/messaging"
	"github.com/kidship/messaging/internal/models"
	"github.com/kidship/messaging/internal/store"
)

func newTestClient(t *testing.T) (*Client, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	svc := messaging.NewService(st, live.NewMemoryBroker())
	hub := NewHub(svc, nil)
	c := &Client{
		hub:     hub,
		UserID:  "a1",
		send:    make(chan []byte, 16),
		streams: make(map[string]*live.Subscription),
	}
	return c, st
}

func nextMessage(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal ws message: %v", err)
		}
		return msg
	default:
		t.Fatal("no message queued for client")
		return WSMessage{}
	}
}

func TestHandleOpenConversation(t *testing.T) {
	c, st := newTestClient(t)
	st.CreateUser(context.Background(), models.User{ID: "b1", FirstName: "Ben"})

	HandleOpenConversation(c, OpenConversationPayload{UserID: "b1"})

	msg := nextMessage(t, c)
	if msg.Type != TypeConversationReady {
		t.Fatalf("message type = %q, want %q", msg.Type, TypeConversationReady)
	}
	var room models.Room
	if err := json.Unmarshal(msg.Payload, &room); err != nil {
		t.Fatalf("unmarshal room: %v", err)
	}
	if room.ID != "a1_b1" {
		t.Errorf("room id = %q, want a1_b1", room.ID)
	}
}

func TestHandleOpenConversationRejectsSelf(t *testing.T) {
	c, _ := newTestClient(t)

	HandleOpenConversation(c, OpenConversationPayload{UserID: "a1"})

	msg := nextMessage(t, c)
	if msg.Type != TypeError {
		t.Errorf("message type = %q, want %q", msg.Type, TypeError)
	}
}

func TestHandleSendMessageEmptyText(t *testing.T) {
	c, _ := newTestClient(t)
	room, err := c.hub.Service.EnsureRoom(context.Background(), "", []string{"a1", "b1"})
	if err != nil {
		t.Fatalf("EnsureRoom: %v", err)
	}

	HandleSendMessage(c, SendMessagePayload{RoomID: room.ID, Text: "   "})

	msg := nextMessage(t, c)
	if msg.Type != TypeError {
		t.Fatalf("message type = %q, want %q", msg.Type, TypeError)
	}
	var errPayload ErrorPayload
	if err := json.Unmarshal(msg.Payload, &errPayload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if errPayload.Code != "EMPTY_MESSAGE" {
		t.Errorf("error code = %q, want EMPTY_MESSAGE", errPayload.Code)
	}
}

func TestStreamOpenAndClose(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	room, err := c.hub.Service.EnsureRoom(ctx, "", []string{"a1", "b1"})
	if err != nil {
		t.Fatalf("EnsureRoom: %v", err)
	}

	HandleStreamOpen(c, StreamPayload{RoomID: room.ID})

	// Initial full-set emission for the empty room.
	msg := nextMessage(t, c)
	if msg.Type != TypeMessagesUpdate {
		t.Fatalf("message type = %q, want %q", msg.Type, TypeMessagesUpdate)
	}
	var update MessagesUpdatePayload
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if update.RoomID != room.ID || len(update.Messages) != 0 {
		t.Errorf("initial update = %+v, want empty set for %s", update, room.ID)
	}

	// A send lands in the stream.
	if _, err := c.hub.Service.Send(ctx, room.ID, "b1", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg = nextMessage(t, c)
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if len(update.Messages) != 1 || update.Messages[0].Text != "hi" {
		t.Errorf("update after send = %+v", update.Messages)
	}

	// Closing the stream stops further emissions.
	HandleStreamClose(c, StreamPayload{RoomID: room.ID})
	if _, err := c.hub.Service.Send(ctx, room.ID, "b1", "again"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case data := <-c.send:
		t.Errorf("unexpected message after stream close: %s", data)
	default:
	}
}

func TestTeardownCancelsStreams(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	room, err := c.hub.Service.EnsureRoom(ctx, "", []string{"a1", "b1"})
	if err != nil {
		t.Fatalf("EnsureRoom: %v", err)
	}

	HandleStreamOpen(c, StreamPayload{RoomID: room.ID})
	<-c.send // drain the initial emission

	c.teardown()
	c.teardown() // second call is a no-op

	// A late send must neither panic nor reach the closed channel.
	if _, err := c.hub.Service.Send(ctx, room.ID, "b1", "late"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel still delivering after teardown")
	}
}
