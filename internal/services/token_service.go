package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/societa/societa-backend/internal/config"
	"github.com/societa/societa-backend/internal/models"
	"gorm.io/gorm"
)

// Verification failures deliberately collapse to a single opaque error per
// token kind so callers cannot distinguish expired from forged from revoked.
var (
	ErrInvalidAccessToken  = errors.New("invalid or expired access token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// AccessClaims is the signed claim set carried by both token kinds. The
// refresh token additionally sets the registered ID (jti) claim.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenService issues, rotates and revokes access/refresh token pairs. It is
// the sole source of truth for whether a refresh token is currently usable;
// access tokens are stateless and expire on their own.
type TokenService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewTokenService(db *gorm.DB, cfg *config.Config) *TokenService {
	return &TokenService{db: db, cfg: cfg}
}

// Issue signs a fresh access/refresh pair for the user and persists a
// Session row keyed by the raw refresh token. The row expiry is decoded
// from the refresh token's own exp claim so the two can never drift.
func (s *TokenService) Issue(user *models.User, userAgent, ipAddress string) (*TokenPair, error) {
	return s.issue(s.db, user, userAgent, ipAddress)
}

func (s *TokenService) issue(db *gorm.DB, user *models.User, userAgent, ipAddress string) (*TokenPair, error) {
	now := time.Now()

	accessToken, err := s.sign(user, now, now.Add(s.cfg.JWTAccessExpiry), "")
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.sign(user, now, now.Add(s.cfg.JWTRefreshExpiry), uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decode refresh token expiry: %w", err)
	}
	expiresAt := claims.ExpiresAt.Time

	session := models.Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
	}
	if err := db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// VerifyAccess checks signature and expiry only. Access tokens are not
// individually revocable; the short access TTL bounds the exposure window.
func (s *TokenService) VerifyAccess(raw string) (*AccessClaims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// Rotate implements single-use refresh rotation: the presented token's
// Session row is revoked and a new pair minted in one transaction, so a
// replayed refresh token fails on its second use.
func (s *TokenService) Rotate(raw, userAgent, ipAddress string) (*TokenPair, *models.User, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, nil, ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, ErrInvalidRefreshToken
	}

	var (
		pair *TokenPair
		user models.User
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Guarded update: exactly one of two concurrent rotations can
		// flip the row; the loser sees zero rows affected.
		res := tx.Model(&models.Session{}).
			Where("refresh_token = ? AND revoked = ? AND expires_at > ?", raw, false, time.Now()).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidRefreshToken
		}

		if err := tx.First(&user, "id = ? AND is_active = ?", userID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}

		p, err := s.issue(tx, &user, userAgent, ipAddress)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return pair, &user, nil
}

// Revoke marks the matching session revoked. Revoking an unknown or
// already-revoked token is a no-op, not an error.
func (s *TokenService) Revoke(raw string) error {
	return s.db.Model(&models.Session{}).
		Where("refresh_token = ?", raw).
		Update("revoked", true).Error
}

// RevokeAllForUser revokes every active session of a user. Used when an
// account is deactivated.
func (s *TokenService) RevokeAllForUser(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&models.Session{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func (s *TokenService) sign(user *models.User, issuedAt, expiresAt time.Time, jti string) (string, error) {
	claims := AccessClaims{
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *TokenService) parse(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidAccessToken
	}
	return &claims, nil
}
