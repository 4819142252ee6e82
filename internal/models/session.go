package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one refresh-token lineage. The raw signed refresh token is the
// lookup key; ExpiresAt mirrors the token's own exp claim. Rows are never
// deleted — revocation flips the flag so expired and revoked lineages stay
// auditable.
type Session struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RefreshToken string    `gorm:"type:text;not null;uniqueIndex" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	UserAgent    string    `gorm:"size:255" json:"user_agent"`
	IPAddress    string    `gorm:"size:45" json:"ip_address"`
	Revoked      bool      `gorm:"not null;default:false" json:"revoked"`
	CreatedAt    time.Time `json:"created_at"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
}

func (Session) TableName() string {
	return "sessions"
}
