package dto

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type SendFriendRequestRequest struct {
	AddresseeID uuid.UUID `json:"addressee_id" validate:"required"`
}

type RespondFriendRequestRequest struct {
	Action string `json:"action" validate:"required,oneof=accepted rejected"`
}

type BlockRequest struct {
	BlockedID uuid.UUID `json:"blocked_id" validate:"required"`
}

type FriendRequestResponse struct {
	ID        uuid.UUID       `json:"id"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	User      ProfileResponse `json:"user"`
}

type ListResponse struct {
	TotalItems  int64       `json:"total_items"`
	TotalPages  int         `json:"total_pages"`
	CurrentPage int         `json:"current_page"`
	Items       interface{} `json:"items"`
}

func NewListResponse(total int64, page, limit int, items interface{}) ListResponse {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return ListResponse{
		TotalItems:  total,
		TotalPages:  pages,
		CurrentPage: page,
		Items:       items,
	}
}
