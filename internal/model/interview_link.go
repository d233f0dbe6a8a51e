package model

import "time"

// InterviewLink is gorm model for a single-use, time-bound interview access
// token. The token doubles as the bearer credential for the public interview
// endpoints, which bounds a leak's blast radius to one interview.
//
// Once expired or completed a link never regresses; regeneration creates a
// new token instead of mutating the old row.
type InterviewLink struct {
	ID    uint   `gorm:"primaryKey;autoIncrement;->" json:"id"`
	Token string `gorm:"type:text;uniqueIndex;not null" json:"token"`

	// At most one active link per application, enforced in the store: the
	// partial unique index only covers rows that can still admit a candidate.
	AppID       uint        `gorm:"not null;index;uniqueIndex:uq_interview_link_active,where:status <> 'expired' AND status <> 'interview_completed'" json:"app_id"`
	Application Application `gorm:"foreignKey:AppID;references:ID" json:"-"`

	Status LinkStatus `gorm:"type:text;default:'generated';index" json:"status"`

	// ConversationID identifies the vendor-side voice session, set once the
	// external SDK starts streaming.
	ConversationID *string `gorm:"type:text;index" json:"conversation_id"`

	FaceTrackingJSON *string `gorm:"type:text" json:"-"`

	ExpiresAt            time.Time  `gorm:"type:timestamp;not null" json:"expires_at"`
	OpenedAt             *time.Time `gorm:"type:timestamp" json:"opened_at"`
	InterviewStartedAt   *time.Time `gorm:"type:timestamp" json:"interview_started_at"`
	InterviewCompletedAt *time.Time `gorm:"type:timestamp" json:"interview_completed_at"`
	CreatedAt            time.Time  `gorm:"type:timestamp;default:CURRENT_TIMESTAMP;->" json:"created_at"`
}

// Expired reports whether the link's expiry timestamp has passed at now.
// Expiry is checked lazily on access; there is no background sweep.
func (l *InterviewLink) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Active reports whether the link can still admit a candidate: not expired,
// not completed, not explicitly marked expired.
func (l *InterviewLink) Active(now time.Time) bool {
	return l.Status != LinkStatusExpired &&
		l.Status != LinkStatusInterviewCompleted &&
		!l.Expired(now)
}
