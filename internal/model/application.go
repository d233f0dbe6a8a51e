package model

import "time"

// DefaultScoreMaxAttempts bounds user-initiated scoring retries.
const DefaultScoreMaxAttempts = 3

// Application is the central join entity: one candidate's candidacy for one
// job, carrying stage, scores and the final decision. Rows are never hard
// deleted; they are retained for audit and reporting.
//
// Version is an optimistic concurrency token. Every stage command updates
// the row with `WHERE id = ? AND version = ?`; a concurrent writer makes the
// command fail with a conflict instead of silently overwriting.
type Application struct {
	ID uint `gorm:"primaryKey;autoIncrement;->" json:"id"`

	CandidateID uint      `gorm:"not null;index;uniqueIndex:uq_candidate_job" json:"candidate_id"`
	Candidate   Candidate `gorm:"foreignKey:CandidateID;references:ID" json:"-"`

	JobID uint `gorm:"not null;index;uniqueIndex:uq_candidate_job" json:"job_id"`
	Job   Job  `gorm:"foreignKey:JobID;references:ID" json:"-"`

	Stage   Stage `gorm:"type:text;default:'new';index" json:"stage"`
	Version uint  `gorm:"not null;default:0" json:"version"`

	ResumeScore     *float64 `json:"resume_score"`
	ResumeScoreJSON *string  `gorm:"type:text" json:"-"`

	InterviewScore     *float64 `json:"interview_score"`
	InterviewScoreJSON *string  `gorm:"type:text" json:"-"`

	ScreeningTranscript *string `gorm:"type:text" json:"-"`
	ScreeningStatus     *string `gorm:"type:text" json:"screening_status"`

	// User-initiated retry bookkeeping for the scoring gateway.
	ScoreAttempts    int        `gorm:"default:0" json:"score_attempts"`
	ScoreMaxAttempts int        `gorm:"default:3" json:"score_max_attempts"`
	LastScoreAt      *time.Time `gorm:"type:timestamp" json:"last_score_at"`

	Recommendation *Recommendation `gorm:"type:text" json:"recommendation"`
	FinalScore     *float64        `json:"final_score"`

	AINextAction   *string `gorm:"type:text" json:"ai_next_action"`
	AISnippetsJSON *string `gorm:"type:text" json:"-"`

	InterviewLinkStatus *LinkStatus `gorm:"type:text" json:"interview_link_status"`
	FaceTrackingJSON    *string     `gorm:"type:text" json:"-"`

	ScheduledInterviewSlot *string `gorm:"type:text" json:"scheduled_interview_slot"`
	Notes                  string  `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"type:timestamp;default:CURRENT_TIMESTAMP;->" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;index" json:"updated_at"`

	Events         []Event         `gorm:"foreignKey:AppID" json:"-"`
	InterviewLinks []InterviewLink `gorm:"foreignKey:AppID" json:"-"`
}
