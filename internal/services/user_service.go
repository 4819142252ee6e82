package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/dto"
	"github.com/societa/societa-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoPassword         = errors.New("account has no password set")
)

// LookupKey is a tagged lookup variant: exactly one of ID or Username is
// set, and the HTTP layer decides which — the store never guesses from the
// shape of the string.
type LookupKey struct {
	ID       *uuid.UUID
	Username string
}

func ByID(id uuid.UUID) LookupKey      { return LookupKey{ID: &id} }
func ByUsername(name string) LookupKey { return LookupKey{Username: name} }

// UserService owns identity records and password verification.
type UserService struct {
	db     *gorm.DB
	tokens *TokenService
}

func NewUserService(db *gorm.DB, tokens *TokenService) *UserService {
	return &UserService{db: db, tokens: tokens}
}

// Register creates a password-backed account. Hashing is an explicit step
// here, not a persistence hook, so it is visible and testable in isolation.
func (s *UserService) Register(req *dto.RegisterRequest) (*models.User, error) {
	var existing models.User
	err := s.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		if existing.Email == req.Email {
			return nil, ErrEmailTaken
		}
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: &hash,
		IsActive:     true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// Authenticate resolves a login (email or username) and verifies the
// password. Every failure mode maps to ErrInvalidCredentials.
func (s *UserService) Authenticate(login, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? OR username = ?", login, login).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive || !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetOrCreateGoogleUser is the single external-identity path: fetch by
// google id, link by email, or create a passwordless account.
func (s *UserService) GetOrCreateGoogleUser(req *dto.GoogleAuthRequest) (*models.User, error) {
	var user models.User
	err := s.db.Where("google_id = ? OR email = ?", req.GoogleID, req.Email).First(&user).Error
	if err == nil {
		if !user.IsActive {
			return nil, ErrUserNotFound
		}
		if user.GoogleID == nil {
			googleID := req.GoogleID
			if err := s.db.Model(&user).Update("google_id", googleID).Error; err != nil {
				return nil, fmt.Errorf("failed to link google identity: %w", err)
			}
			user.GoogleID = &googleID
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	googleID := req.GoogleID
	user = models.User{
		ID:          uuid.New(),
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: displayName,
		GoogleID:    &googleID,
		IsActive:    true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create google user: %w", err)
	}
	return &user, nil
}

// GetByID returns an active user by id.
func (s *UserService) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ? AND is_active = ?", id, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Lookup resolves a tagged lookup key to an active user.
func (s *UserService) Lookup(key LookupKey) (*models.User, error) {
	if key.ID != nil {
		return s.GetByID(*key.ID)
	}
	var user models.User
	if err := s.db.First(&user, "username = ? AND is_active = ?", key.Username, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword verifies the current password before hashing and storing
// the new one. External-identity accounts have no password to change.
func (s *UserService) ChangePassword(userID uuid.UUID, current, updated string) error {
	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := hashPassword(updated)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password_hash", hash).Error
}

// Deactivate soft-deletes the account and revokes its sessions in one
// transaction. Relationship and block rows are kept; reads filter on the
// active flag instead.
func (s *UserService) Deactivate(userID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND is_active = ?", userID, true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return s.tokens.RevokeAllForUser(tx, userID)
	})
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
