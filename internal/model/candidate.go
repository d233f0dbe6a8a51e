package model

import "time"

// Candidate is gorm model for a person extracted from an inbound email or
// entered manually. Email is intentionally not unique: the same person can
// write in from several addresses.
type Candidate struct {
	ID uint `gorm:"primaryKey;autoIncrement;->" json:"id"`

	Name           string `gorm:"type:text;not null" json:"name"`
	Email          string `gorm:"type:text;not null;index" json:"email"`
	Phone          string `gorm:"type:text" json:"phone"`
	ResumeText     string `gorm:"type:text" json:"resume_text"`
	ResumeFilename string `gorm:"type:text" json:"resume_filename"`
	Notes          string `gorm:"type:text" json:"notes"`

	SourceEmailID *uint  `gorm:"index" json:"source_email_id"`
	SourceEmail   *Email `gorm:"foreignKey:SourceEmailID;references:ID" json:"-"`

	CreatedAt time.Time `gorm:"type:timestamp;default:CURRENT_TIMESTAMP;->" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp" json:"updated_at"`

	Applications []Application `gorm:"foreignKey:CandidateID" json:"-"`
}
