package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kidship/messaging/internal/auth"
	"github.com/kidship/messaging/internal/messaging"
)

func GetMessages(svc *messaging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["id"]
		userID := r.Context().Value(auth.UserIDKey).(string)

		// Without a cursor the page starts at the newest message.
		var before time.Time
		if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
			if t, err := time.Parse(time.RFC3339, beforeStr); err == nil {
				before = t
			}
		}

		limit := 50
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
				limit = l
			}
		}

		messages, err := svc.Messages(r.Context(), roomID, userID, before, limit)
		switch {
		case errors.Is(err, messaging.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room not found")
		case errors.Is(err, messaging.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "not a participant of this room")
		case err != nil:
			slog.Error("failed to get messages", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			writeJSON(w, http.StatusOK, messages)
		}
	}
}

func SendMessage(svc *messaging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["id"]
		userID := r.Context().Value(auth.UserIDKey).(string)

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		msg, err := svc.Send(r.Context(), roomID, userID, req.Text)
		switch {
		case errors.Is(err, messaging.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message text is empty")
		case errors.Is(err, messaging.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room not found")
		case errors.Is(err, messaging.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "not a participant of this room")
		case err != nil:
			slog.Error("failed to send message", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			writeJSON(w, http.StatusCreated, msg)
		}
	}
}
