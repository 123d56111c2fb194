package models

import "time"

type Room struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// Counterpart returns the participant id that is not userID, or "" if
// userID is not a participant or the room has no other member.
func (r *Room) Counterpart(userID string) string {
	seen := false
	other := ""
	for _, p := range r.Participants {
		if p == userID {
			seen = true
		} else if other == "" {
			other = p
		}
	}
	if !seen {
		return ""
	}
	return other
}

func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
