package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account in the system. Accounts are created on
// first successful Google sign-in; the email is the identity key and never
// changes afterwards.
type User struct {
	gorm.Model

	Email string `gorm:"uniqueIndex;not null" json:"email"`

	// Google OAuth fields
	GoogleID       *string `gorm:"uniqueIndex" json:"google_id,omitempty"`
	GoogleImageURL *string `json:"profile_picture,omitempty"`

	// Profile information
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Templates []EmailTemplate `gorm:"foreignKey:CreatedByID" json:"-"`
	Campaigns []EmailCampaign `gorm:"foreignKey:CreatedByID" json:"-"`
}

// FullName returns the display name used in API responses.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RefreshToken is a persisted refresh credential. Tokens are rotated on use:
// presenting a valid token revokes its row and issues a replacement.
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	TokenID   string    `gorm:"uniqueIndex;not null" json:"token_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	IsRevoked bool      `gorm:"default:false" json:"is_revoked"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`

	User User `json:"-"`
}
