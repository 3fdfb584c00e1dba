package models

import (
	"time"

	"gorm.io/gorm"
)

// Draft status values. The observed lifecycle is monotonic:
// pending -> generated -> sent, with failed reachable from pending or
// generated via ErrorMessage.
const (
	DraftStatusPending   = "pending"
	DraftStatusGenerated = "generated"
	DraftStatusSent      = "sent"
	DraftStatusFailed    = "failed"
)

// EmailDraft is one generated email body for one recipient within a
// campaign. Drafts belong to exactly one campaign and inherit ownership
// through it.
type EmailDraft struct {
	gorm.Model

	CampaignID uint          `gorm:"not null;index" json:"campaign"`
	Campaign   EmailCampaign `json:"-"`

	RecipientEmail string `gorm:"not null" json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	Subject        string `json:"subject"`
	Body           string `gorm:"type:text" json:"body"`

	// Raw recipient payload the body was generated from.
	PersonalizationData map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"personalization_data"`

	Status       string     `gorm:"default:'pending'" json:"status"` // pending, generated, sent, failed
	GeneratedAt  *time.Time `json:"generated_at"`
	SentAt       *time.Time `json:"sent_at"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
}

// MarkSent transitions the draft to sent. Already-sent drafts are left
// untouched so repeated calls do not overwrite the original timestamp.
func (d *EmailDraft) MarkSent(db *gorm.DB) error {
	if d.Status == DraftStatusSent {
		return nil
	}
	now := time.Now()
	d.Status = DraftStatusSent
	d.SentAt = &now
	return db.Save(d).Error
}

// MarkFailed records a delivery or generation failure without touching the
// sent timestamp.
func (d *EmailDraft) MarkFailed(db *gorm.DB, msg string) error {
	d.Status = DraftStatusFailed
	d.ErrorMessage = msg
	return db.Save(d).Error
}
