package models

import "time"

const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
)

type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Password  string    `json:"-"`
	AvatarURL string    `json:"avatar_url"`
	Role      string    `json:"role"`
	SchoolID  string    `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return "Unknown user"
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
