package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrSelfTarget         = errors.New("cannot target yourself")
	ErrBlocked            = errors.New("access denied")
	ErrTargetBlocked      = errors.New("unblock this user first")
	ErrAlreadyFriends     = errors.New("already friends with this user")
	ErrRequestExists      = errors.New("friend request already sent")
	ErrAlreadyBlocked     = errors.New("user already blocked")
	ErrRequestNotFound    = errors.New("friend request not found")
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrBlockNotFound      = errors.New("block not found")
)

// RelationshipService owns the friend/block state machine. Every mutation
// checks the other relation type before proceeding: friendship actions
// consult blocks, and blocking purges any friendship in the same
// transaction.
type RelationshipService struct {
	db *gorm.DB
}

func NewRelationshipService(db *gorm.DB) *RelationshipService {
	return &RelationshipService{db: db}
}

// SendRequest creates a pending edge toward the addressee. A pending edge
// in the opposite direction is treated as reciprocal consent and flipped to
// accepted; a rejected edge counts as absent and is revived as a fresh
// pending request owned by the new requester.
func (s *RelationshipService) SendRequest(requesterID, addresseeID uuid.UUID) (*models.Relationship, error) {
	if requesterID == addresseeID {
		return nil, ErrSelfTarget
	}

	var addressee models.User
	if err := s.db.First(&addressee, "id = ? AND is_active = ?", addresseeID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	blocked, err := s.IsBlocked(requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}

	haveBlocked, err := s.IsBlocked(addresseeID, requesterID)
	if err != nil {
		return nil, err
	}
	if haveBlocked {
		return nil, ErrTargetBlocked
	}

	var existing models.Relationship
	err = s.db.Where(
		"(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
		requesterID, addresseeID, addresseeID, requesterID,
	).First(&existing).Error
	if err == nil {
		switch {
		case existing.Status == models.RelationshipAccepted:
			return nil, ErrAlreadyFriends
		case existing.Status == models.RelationshipPending && existing.RequesterID == requesterID:
			return nil, ErrRequestExists
		case existing.Status == models.RelationshipPending:
			// Reciprocal request: implicit accept instead of a
			// second pending row for the same pair.
			if err := s.db.Model(&existing).Update("status", models.RelationshipAccepted).Error; err != nil {
				return nil, fmt.Errorf("failed to accept reciprocal request: %w", err)
			}
			existing.Status = models.RelationshipAccepted
			return &existing, nil
		default:
			// Rejected is terminal but not blocking: revive the
			// row as a fresh pending request in the new direction,
			// keeping the one-row-per-pair invariant.
			updates := map[string]interface{}{
				"requester_id": requesterID,
				"addressee_id": addresseeID,
				"status":       models.RelationshipPending,
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("failed to renew friend request: %w", err)
			}
			existing.RequesterID = requesterID
			existing.AddresseeID = addresseeID
			existing.Status = models.RelationshipPending
			return &existing, nil
		}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	relationship := models.Relationship{
		ID:          uuid.New(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      models.RelationshipPending,
	}
	if err := s.db.Create(&relationship).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRequestExists
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return &relationship, nil
}

// Respond accepts or rejects a pending request. Only the addressee of the
// pending row may respond. Rejected rows are retained, not deleted.
func (s *RelationshipService) Respond(responderID, requestID uuid.UUID, action string) (*models.Relationship, error) {
	var request models.Relationship
	err := s.db.First(&request,
		"id = ? AND addressee_id = ? AND status = ?",
		requestID, responderID, models.RelationshipPending,
	).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&request).Update("status", action).Error; err != nil {
		return nil, fmt.Errorf("failed to update friend request: %w", err)
	}
	request.Status = action
	return &request, nil
}

// RemoveFriend deletes an accepted edge containing both users, in either
// direction. A later SendRequest starts a fresh lineage.
func (s *RelationshipService) RemoveFriend(userID, friendID uuid.UUID) error {
	res := s.db.Where(
		"status = ? AND ((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?))",
		models.RelationshipAccepted, userID, friendID, friendID, userID,
	).Delete(&models.Relationship{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFriendshipNotFound
	}
	return nil
}

// Block inserts the directed block edge and purges any relationship row
// between the pair, regardless of status or direction, in one transaction.
// A reader never observes a state where both a block and a friendship hold.
func (s *RelationshipService) Block(blockerID, blockedID uuid.UUID) (*models.Block, error) {
	if blockerID == blockedID {
		return nil, ErrSelfTarget
	}

	var target models.User
	if err := s.db.First(&target, "id = ? AND is_active = ?", blockedID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	block := models.Block{
		ID:        uuid.New(),
		BlockerID: blockerID,
		BlockedID: blockedID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(
			"(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			blockerID, blockedID, blockedID, blockerID,
		).Delete(&models.Relationship{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&block).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyBlocked
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// Unblock deletes the directed block edge. It does not restore any
// relationship the block destroyed.
func (s *RelationshipService) Unblock(blockerID, blockedID uuid.UUID) error {
	res := s.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// IsBlocked reports whether userID is blocked by otherID. Note the
// direction: the question is "has the target blocked the caller", which is
// what visibility checks need.
func (s *RelationshipService) IsBlocked(userID, otherID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", otherID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFriends returns the active users on the other side of the caller's
// accepted edges, paginated over the edges.
func (s *RelationshipService) ListFriends(userID uuid.UUID, limit, offset int) ([]models.User, int64, error) {
	query := s.db.Model(&models.Relationship{}).
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
			models.RelationshipAccepted, userID, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var edges []models.Relationship
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&edges).Error; err != nil {
		return nil, 0, err
	}

	friendIDs := make([]uuid.UUID, 0, len(edges))
	for _, edge := range edges {
		if edge.RequesterID == userID {
			friendIDs = append(friendIDs, edge.AddresseeID)
		} else {
			friendIDs = append(friendIDs, edge.RequesterID)
		}
	}
	if len(friendIDs) == 0 {
		return []models.User{}, total, nil
	}

	var friends []models.User
	if err := s.db.Where("id IN ? AND is_active = ?", friendIDs, true).Find(&friends).Error; err != nil {
		return nil, 0, err
	}
	return friends, total, nil
}

// ListIncoming returns pending requests addressed to the user, newest
// first, with the requester preloaded. Requests from deactivated accounts
// are dropped.
func (s *RelationshipService) ListIncoming(userID uuid.UUID, limit, offset int) ([]models.Relationship, int64, error) {
	return s.listPending(userID, "addressee_id", "Requester", limit, offset)
}

// ListOutgoing returns the user's own pending requests with the addressee
// preloaded.
func (s *RelationshipService) ListOutgoing(userID uuid.UUID, limit, offset int) ([]models.Relationship, int64, error) {
	return s.listPending(userID, "requester_id", "Addressee", limit, offset)
}

func (s *RelationshipService) listPending(userID uuid.UUID, column, preload string, limit, offset int) ([]models.Relationship, int64, error) {
	query := s.db.Model(&models.Relationship{}).
		Where(column+" = ? AND status = ?", userID, models.RelationshipPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.Relationship
	err := query.Preload(preload).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	active := requests[:0]
	for _, r := range requests {
		other := r.Requester
		if preload == "Addressee" {
			other = r.Addressee
		}
		if other.IsActive {
			active = append(active, r)
		}
	}
	return active, total, nil
}

// ListBlocked returns the users the caller has blocked.
func (s *RelationshipService) ListBlocked(blockerID uuid.UUID, limit, offset int) ([]models.User, int64, error) {
	query := s.db.Model(&models.Block{}).Where("blocker_id = ?", blockerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var blocks []models.Block
	err := query.Preload("Blocked").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&blocks).Error
	if err != nil {
		return nil, 0, err
	}

	users := make([]models.User, 0, len(blocks))
	for _, b := range blocks {
		users = append(users, b.Blocked)
	}
	return users, total, nil
}
