package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	AvatarURL    *string   `db:"avatar_url"`    // from the OAuth profile, if any
	PasswordHash *string   `db:"password_hash"` // nullable for OAuth-only users
	CreatedAt    time.Time `db:"created_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
