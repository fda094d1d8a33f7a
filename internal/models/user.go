package models

import "time"

// Column limits for User, enforced on registration.
const (
	MaxUsernameLen = 50
	MaxEmailLen    = 100
)

// User is a registered account. Rows are created on registration and never
// deleted by the backend.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the directory view of a user used for call-target selection.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Summary strips everything but the directory fields.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}
