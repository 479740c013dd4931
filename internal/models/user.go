// Package models contains the GORM entities and the error taxonomy shared by
// every layer of the snapgram backend.
package models

import "time"

// User is a registered account. Password holds a bcrypt hash and never leaves
// the server.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"not null" json:"username"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	Password      string    `gorm:"not null" json:"-"`
	ProfilePic    string    `json:"profile_pic"`
	Bio           string    `json:"bio"`
	GoogleSubject *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SummaryColumns are the user columns exposed next to posts, chats and
// messages.
var SummaryColumns = []string{"id", "username", "profile_pic"}
