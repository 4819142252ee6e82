package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RelationshipPending  = "pending"
	RelationshipAccepted = "accepted"
	RelationshipRejected = "rejected"
)

// Relationship is the directed friend-request/friendship edge for an
// ordered (requester, addressee) pair. At most one row exists per unordered
// pair regardless of direction: a reciprocal request flips the existing
// pending row to accepted instead of inserting a reverse row. The ordered
// unique index is the constraint backstop for concurrent duplicate inserts.
type Relationship struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_relationships_pair" json:"requester_id"`
	AddresseeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_relationships_pair" json:"addressee_id"`
	Status      string    `gorm:"size:10;not null;default:'pending'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Requester   User      `gorm:"foreignKey:RequesterID" json:"-"`
	Addressee   User      `gorm:"foreignKey:AddresseeID" json:"-"`
}

func (Relationship) TableName() string {
	return "relationships"
}

// Involves reports whether both ids belong to this edge, in either direction.
func (r *Relationship) Involves(a, b uuid.UUID) bool {
	return (r.RequesterID == a && r.AddresseeID == b) ||
		(r.RequesterID == b && r.AddresseeID == a)
}
