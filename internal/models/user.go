package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the root identity record. Accounts are soft-deactivated via
// IsActive, never hard-deleted; sessions, relationships and blocks keep
// their user references and are filtered at read time.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username     string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	DisplayName  string    `gorm:"size:100" json:"display_name"`
	PasswordHash *string   `gorm:"size:100" json:"-"`
	Bio          string    `gorm:"type:text" json:"bio"`
	AvatarURL    string    `gorm:"size:255" json:"avatar_url"`
	GoogleID     *string   `gorm:"size:255;uniqueIndex" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether this is a password-backed account.
// External-identity accounts carry a nil hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
