package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"mailforge/models"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type Claims struct {
	UserID  uint   `json:"user_id"`
	TokenID string `json:"token_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateTokenPair issues a fresh access/refresh pair for the user and
// persists the refresh token so it can be revoked on rotation.
func GenerateTokenPair(db *gorm.DB, user *models.User, secret []byte, userAgent, ip string) (string, string, error) {
	// Access token (15 minutes expiry)
	accessClaims := &Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString(secret)
	if err != nil {
		return "", "", err
	}

	// Refresh token (7 days expiry) carries a token ID tracked in the store
	tokenID := uuid.NewString()
	expiresAt := time.Now().Add(refreshTokenTTL)
	refreshClaims := &Claims{
		UserID:  user.ID,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString(secret)
	if err != nil {
		return "", "", err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
		UserAgent: userAgent,
		IP:        ip,
	}
	if err := db.Create(&record).Error; err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

func ParseJWTToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// RotateRefreshToken validates a refresh token against its stored record,
// revokes it and issues a new pair. Malformed, expired or revoked tokens
// all fail with ErrInvalidRefreshToken.
func RotateRefreshToken(db *gorm.DB, refreshToken string, secret []byte) (string, string, error) {
	claims, err := ParseJWTToken(refreshToken, secret)
	if err != nil || claims.TokenID == "" {
		return "", "", ErrInvalidRefreshToken
	}

	var record models.RefreshToken
	if err := db.Where("token_id = ?", claims.TokenID).First(&record).Error; err != nil {
		return "", "", ErrInvalidRefreshToken
	}
	if record.IsRevoked || time.Now().After(record.ExpiresAt) {
		return "", "", ErrInvalidRefreshToken
	}

	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return "", "", ErrInvalidRefreshToken
	}

	// Revoke and reissue atomically so a failed issue does not burn the
	// presented token
	var accessToken, newRefreshToken string
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&record).Update("is_revoked", true).Error; err != nil {
			return err
		}
		var err error
		accessToken, newRefreshToken, err = GenerateTokenPair(tx, &user, secret, record.UserAgent, record.IP)
		return err
	})
	if err != nil {
		return "", "", err
	}

	return accessToken, newRefreshToken, nil
}
