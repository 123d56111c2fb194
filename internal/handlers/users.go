package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kidship/messaging/internal/auth"
	"github.com/kidship/messaging/internal/chat"
	"github.com/kidship/messaging/internal/messaging"
	"github.com/kidship/messaging/internal/store"
)

func SearchUsers(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			writeJSON(w, http.StatusOK, []interface{}{})
			return
		}

		users, err := st.SearchUsers(r.Context(), query, 20)
		if err != nil {
			slog.Error("failed to search users", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, users)
	}
}

func OnlineUsers(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := hub.OnlineUserIDs()
		if err != nil {
			slog.Error("failed to get online users", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"online": ids})
	}
}

// UpdateProfile lets the caller change their profile fields. The resolver
// cache is invalidated across instances so conversation lists pick up the
// new name on their next emission.
func UpdateProfile(st store.Store, svc *messaging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(auth.UserIDKey).(string)

		var req struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FirstName == "" {
			writeError(w, http.StatusBadRequest, "first_name is required")
			return
		}

		user, err := st.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName, req.AvatarURL)
		if err != nil {
			slog.Error("failed to update profile", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		svc.ProfileUpdated(userID)

		writeJSON(w, http.StatusOK, user)
	}
}
