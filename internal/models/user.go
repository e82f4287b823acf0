package models

import "time"

// User represents an account of any role.
type User struct {
	ID        string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string            `json:"username" gorm:"type:varchar(100);not null"`
	Email     string            `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  string            `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialised
	Role      Role              `json:"role" gorm:"type:varchar(20);not null"`
	Profile   map[string]string `json:"profile" gorm:"serializer:json"`
	IsActive  bool              `json:"isActive" gorm:"not null"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Actor returns the request identity for the user.
func (u User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
