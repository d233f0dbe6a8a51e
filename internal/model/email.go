package model

import (
	"time"

	"github.com/lib/pq"
)

// Email processing markers for the auto-workflow.
const (
	EmailProcessedNew              = 0
	EmailProcessedClassified       = 1
	EmailProcessedCandidateCreated = 2
)

// Email is gorm model for an inbound message sitting in the shared inbox.
// Classification results are denormalized onto the row so inbox listing
// never has to re-run the classifier.
type Email struct {
	ID        uint    `gorm:"primaryKey;autoIncrement;->" json:"id"`
	MessageID *string `gorm:"type:text;uniqueIndex" json:"message_id"`

	FromAddress string         `gorm:"type:text;not null" json:"from_address"`
	FromName    string         `gorm:"type:text" json:"from_name"`
	Subject     string         `gorm:"type:text" json:"subject"`
	BodySnippet string         `gorm:"type:text" json:"body_snippet"`
	BodyFull    string         `gorm:"type:text" json:"-"`
	Attachments pq.StringArray `gorm:"type:text[]" json:"attachments"`

	// ClassifiedAs is nil until the classification gateway has run.
	ClassifiedAs       *string  `gorm:"type:text;index" json:"classified_as"`
	Confidence         *float64 `json:"confidence"`
	ClassificationJSON *string  `gorm:"type:text" json:"-"`

	Processed  int        `gorm:"default:0" json:"processed"`
	ReceivedAt *time.Time `gorm:"type:timestamp" json:"received_at"`
	CreatedAt  time.Time  `gorm:"type:timestamp;default:CURRENT_TIMESTAMP;->" json:"created_at"`
}

// Classification categories returned by the classification gateway.
const (
	CategoryCandidateApplication = "candidate_application"
	CategoryGeneral              = "general"
	CategoryUnknown              = "unknown"
)
