package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a forum account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null" json:"username"`
	UsernameKey  string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the part of a user that is safe to hand out.
type PublicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Public strips credentials from the user.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}

// UsernameKeyOf normalizes a username for case-insensitive comparison.
func UsernameKeyOf(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// BeforeCreate keeps the lookup key and timestamp in sync with the username.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.UsernameKey = UsernameKeyOf(u.Username)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}
