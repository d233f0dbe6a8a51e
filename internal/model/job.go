package model

import (
	"time"

	"github.com/lib/pq"
)

// Job is gorm model for an open position that applications reference.
// JobCode is the human-facing identifier (JOB-YYYY-NNN) and is stable once
// assigned.
type Job struct {
	ID      uint   `gorm:"primaryKey;autoIncrement;->" json:"id"`
	JobCode string `gorm:"type:text;uniqueIndex;not null" json:"job_code"`

	Title       string         `gorm:"type:text;not null" json:"title"`
	Department  string         `gorm:"type:text" json:"department"`
	Location    string         `gorm:"type:text" json:"location"`
	Seniority   string         `gorm:"type:text" json:"seniority"`
	Skills      pq.StringArray `gorm:"type:text[]" json:"skills"`
	Description string         `gorm:"type:text" json:"description"`
	Status      JobStatus      `gorm:"type:text;default:'open';index" json:"status"`

	CreatedAt time.Time `gorm:"type:timestamp;default:CURRENT_TIMESTAMP;->" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp" json:"updated_at"`

	Applications []Application `gorm:"foreignKey:JobID" json:"-"`
}

// EditableJobInfo carries the fields HR may set when creating or editing a
// job. Kept separate so handlers can bind it without exposing ID/JobCode.
type EditableJobInfo struct {
	Title       string         `json:"title"`
	Department  string         `json:"department"`
	Location    string         `json:"location"`
	Seniority   string         `json:"seniority"`
	Skills      pq.StringArray `json:"skills"`
	Description string         `json:"description"`
	Status      JobStatus      `json:"status"`
}
