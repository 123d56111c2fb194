package store

import (
	"context"
	"testing"
	"time"

	"github.com/kidship/messaging/internal/models"
)

func TestMemoryEnsureRoomIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	r1, created, err := m.EnsureRoom(ctx, "a_b", []string{"a", "b"})
	if err != nil {
		t.Fatalf("EnsureRoom: %v", err)
	}
	if !created {
		t.Error("first EnsureRoom should report created")
	}

	r2, created, err := m.EnsureRoom(ctx, "a_b", []string{"b", "a"})
	if err != nil {
		t.Fatalf("EnsureRoom again: %v", err)
	}
	if created {
		t.Error("second EnsureRoom should not report created")
	}
	if len(r2.Participants) != 2 || r2.Participants[0] != r1.Participants[0] {
		t.Error("second EnsureRoom changed participants")
	}
}

func TestMemoryTimestampsStrictlyIncrease(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.EnsureRoom(ctx, "a_b", []string{"a", "b"})

	var prev time.Time
	for i := 0; i < 50; i++ {
		msg, err := m.AppendMessage(ctx, "a_b", "a", "tick")
		if err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		if !msg.CreatedAt.After(prev) {
			t.Fatalf("timestamp %v not after %v at append %d", msg.CreatedAt, prev, i)
		}
		prev = msg.CreatedAt
	}
}

func TestMemoryMessagesPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.EnsureRoom(ctx, "a_b", []string{"a", "b"})

	texts := []string{"one", "two", "three", "four"}
	var stamps []time.Time
	for _, text := range texts {
		msg, _ := m.AppendMessage(ctx, "a_b", "a", text)
		stamps = append(stamps, msg.CreatedAt)
	}

	page, err := m.Messages(ctx, "a_b", time.Now().Add(time.Hour), 2)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(page) != 2 || page[0].Text != "four" || page[1].Text != "three" {
		t.Fatalf("first page = %v", pageTexts(page))
	}

	older, err := m.Messages(ctx, "a_b", stamps[2], 10)
	if err != nil {
		t.Fatalf("Messages before: %v", err)
	}
	if len(older) != 2 || older[0].Text != "two" || older[1].Text != "one" {
		t.Fatalf("older page = %v", pageTexts(older))
	}
}

func TestMemoryMessagesZeroBeforeReadsNewest(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.EnsureRoom(ctx, "a_b", []string{"a", "b"})

	for _, text := range []string{"one", "two", "three"} {
		m.AppendMessage(ctx, "a_b", "a", text)
	}

	all, err := m.Messages(ctx, "a_b", time.Time{}, 10)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(all) != 3 || all[0].Text != "three" || all[2].Text != "one" {
		t.Fatalf("unbounded read = %v", pageTexts(all))
	}
}

func pageTexts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestMemoryLatestMessage(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.EnsureRoom(ctx, "a_b", []string{"a", "b"})

	latest, err := m.LatestMessage(ctx, "a_b")
	if err != nil {
		t.Fatalf("LatestMessage: %v", err)
	}
	if latest != nil {
		t.Errorf("empty room latest = %+v, want nil", latest)
	}

	m.AppendMessage(ctx, "a_b", "a", "first")
	m.AppendMessage(ctx, "a_b", "b", "second")
	latest, err = m.LatestMessage(ctx, "a_b")
	if err != nil {
		t.Fatalf("LatestMessage: %v", err)
	}
	if latest == nil || latest.Text != "second" {
		t.Errorf("latest = %+v, want second", latest)
	}
}

func TestMemoryUserLookups(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, err := m.CreateUser(ctx, models.User{FirstName: "Alice", LastName: "Anders", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("CreateUser did not assign an id")
	}

	byEmail, err := m.UserByEmail(ctx, "alice@example.com")
	if err != nil || byEmail == nil || byEmail.ID != u.ID {
		t.Errorf("UserByEmail = %+v, %v", byEmail, err)
	}

	missing, err := m.UserByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing user = %+v, %v, want nil, nil", missing, err)
	}

	found, err := m.SearchUsers(ctx, "and", 10)
	if err != nil || len(found) != 1 {
		t.Errorf("SearchUsers = %v, %v, want one match", found, err)
	}
}

func TestMemoryUpdateProfile(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, err := m.CreateUser(ctx, models.User{FirstName: "Alice", LastName: "Anders"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	updated, err := m.UpdateProfile(ctx, u.ID, "Alicia", "Arnold", "/a.png")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.FirstName != "Alicia" || updated.LastName != "Arnold" || updated.AvatarURL != "/a.png" {
		t.Errorf("updated = %+v", updated)
	}

	stored, _ := m.UserByID(ctx, u.ID)
	if stored.FirstName != "Alicia" {
		t.Errorf("stored first name = %q, want Alicia", stored.FirstName)
	}

	missing, err := m.UpdateProfile(ctx, "nope", "X", "", "")
	if err != nil || missing != nil {
		t.Errorf("missing update = %+v, %v, want nil, nil", missing, err)
	}
}
