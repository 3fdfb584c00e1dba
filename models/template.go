package models

import (
	"gorm.io/gorm"
)

// EmailTemplate is a reusable subject/body pattern owned by its creator.
// Templates are soft-deactivated via IsActive instead of hard-deleted so
// campaigns referencing them keep working until the reference is cleared.
type EmailTemplate struct {
	gorm.Model

	Name            string `gorm:"not null" json:"name"`
	Description     string `json:"description"`
	SubjectTemplate string `gorm:"not null" json:"subject_template"`
	BodyTemplate    string `gorm:"not null;type:text" json:"body_template"`

	CreatedByID uint `gorm:"not null;index" json:"created_by"`
	IsActive    bool `gorm:"default:true" json:"is_active"`

	CreatedBy User `json:"-"`
}
