package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign status values.
const (
	CampaignStatusDraft      = "draft"
	CampaignStatusScheduled  = "scheduled"
	CampaignStatusInProgress = "in_progress"
	CampaignStatusCompleted  = "completed"
	CampaignStatusFailed     = "failed"
)

// EmailCampaign is a named batch of personalized emails sharing a template
// and custom generation instructions. The template reference is nullable:
// deleting a template clears it, the campaign survives.
type EmailCampaign struct {
	gorm.Model

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	TemplateID   *uint          `gorm:"index" json:"template"`
	Template     *EmailTemplate `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CustomPrompt string         `gorm:"type:text" json:"custom_prompt"`

	CreatedByID uint `gorm:"not null;index" json:"created_by"`
	CreatedBy   User `json:"-"`

	Status        string     `gorm:"default:'draft'" json:"status"` // draft, scheduled, in_progress, completed, failed
	ScheduledTime *time.Time `json:"scheduled_time"`

	// Drafts are cascade-deleted with their campaign.
	Drafts []EmailDraft `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"drafts,omitempty"`
}
