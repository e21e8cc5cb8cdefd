package models

import (
	"time"
)

// User is the author profile owned by the identity provider. Passwords are stored as hashes only.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Username     string    `gorm:"size:64;not null" bson:"username" json:"username"`
	Email        string    `gorm:"size:255" bson:"email" json:"email"`
	AvatarURL    string    `gorm:"size:512" bson:"avatar" json:"avatar"`
	PasswordHash string    `gorm:"size:255" bson:"password" json:"-"`
	Role         string    `gorm:"size:32" bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the author projection attached to posts: no credentials, email or role.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Public strips sensitive fields from the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.AvatarURL,
	}
}
