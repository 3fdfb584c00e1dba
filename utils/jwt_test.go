package utils

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mailforge/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))
	return db
}

func TestGenerateTokenPair_RoundTrip(t *testing.T) {
	db := setupDB(t)
	secret := []byte("test-secret")

	user := models.User{Email: "u@example.com", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	access, refresh, err := GenerateTokenPair(db, &user, secret, "ua", "127.0.0.1")
	require.NoError(t, err)

	accessClaims, err := ParseJWTToken(access, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, accessClaims.UserID)
	assert.Empty(t, accessClaims.TokenID, "access tokens must not carry a refresh token id")

	refreshClaims, err := ParseJWTToken(refresh, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshClaims.UserID)
	assert.NotEmpty(t, refreshClaims.TokenID)

	var count int64
	db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestParseJWTToken_WrongSecret(t *testing.T) {
	db := setupDB(t)

	user := models.User{Email: "u@example.com", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	access, _, err := GenerateTokenPair(db, &user, []byte("right"), "", "")
	require.NoError(t, err)

	_, err = ParseJWTToken(access, []byte("wrong"))
	assert.Error(t, err)
}

func TestRotateRefreshToken_RevokesOld(t *testing.T) {
	db := setupDB(t)
	secret := []byte("test-secret")

	user := models.User{Email: "u@example.com", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	_, refresh, err := GenerateTokenPair(db, &user, secret, "", "")
	require.NoError(t, err)

	access2, refresh2, err := RotateRefreshToken(db, refresh, secret)
	require.NoError(t, err)
	assert.NotEmpty(t, access2)
	assert.NotEmpty(t, refresh2)

	// Presenting the original token again must fail
	_, _, err = RotateRefreshToken(db, refresh, secret)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The replacement still works
	_, _, err = RotateRefreshToken(db, refresh2, secret)
	assert.NoError(t, err)
}

func TestRotateRefreshToken_IssueFailureKeepsOldTokenValid(t *testing.T) {
	db := setupDB(t)
	secret := []byte("test-secret")

	user := models.User{Email: "u@example.com", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	_, refresh, err := GenerateTokenPair(db, &user, secret, "", "")
	require.NoError(t, err)

	// Make the insert of the replacement token fail mid-rotation
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("fail_refresh_insert", func(tx *gorm.DB) {
			if tx.Statement.Table == "refresh_tokens" {
				tx.AddError(errors.New("insert failed"))
			}
		}))

	_, _, err = RotateRefreshToken(db, refresh, secret)
	require.Error(t, err)

	require.NoError(t, db.Callback().Create().Remove("fail_refresh_insert"))

	// The revoke must have been rolled back with the failed issue
	_, _, err = RotateRefreshToken(db, refresh, secret)
	assert.NoError(t, err)
}

func TestRotateRefreshToken_Malformed(t *testing.T) {
	db := setupDB(t)

	_, _, err := RotateRefreshToken(db, "not.a.jwt", []byte("k"))
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateRefreshToken_AccessTokenRejected(t *testing.T) {
	db := setupDB(t)
	secret := []byte("test-secret")

	user := models.User{Email: "u@example.com", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	access, _, err := GenerateTokenPair(db, &user, secret, "", "")
	require.NoError(t, err)

	// An access token has no token id and must not rotate
	_, _, err = RotateRefreshToken(db, access, secret)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
