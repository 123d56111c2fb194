package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kidship/messaging/internal/auth"
	"github.com/kidship/messaging/internal/messaging"
)

// StartConversation ensures the room for the caller and a counterpart and
// returns it. Calling it again for the same pair returns the same room.
func StartConversation(svc *messaging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(auth.UserIDKey).(string)

		var req struct {
			UserID string `json:"user_id"`
			RoomID string `json:"room_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		if req.UserID == userID {
			writeError(w, http.StatusBadRequest, "cannot start a conversation with yourself")
			return
		}

		room, err := svc.EnsureRoom(r.Context(), req.RoomID, []string{userID, req.UserID})
		if err != nil {
			slog.Error("failed to start conversation", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, room)
	}
}

// ListConversations returns the caller's conversation list: one entry per
// room, each with the counterpart profile and the latest message.
func ListConversations(svc *messaging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(auth.UserIDKey).(string)
		conversations, err := svc.Conversations(r.Context(), userID)
		if err != nil {
			slog.Error("failed to list conversations", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, conversations)
	}
}
