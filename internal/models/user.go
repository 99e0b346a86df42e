package models

import "time"

// User is the externally owned profile joined into chat responses.
type User struct {
	ID         int        `db:"id" json:"id"`
	Username   string     `db:"username" json:"username"`
	AvatarURL  *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	LastActive *time.Time `db:"last_active" json:"last_active,omitempty"`
}
