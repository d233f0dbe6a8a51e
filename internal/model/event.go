package model

import "time"

// Event is an append-only audit record. The orchestrator only ever writes
// these; reports read them. Rows are never mutated or deleted.
type Event struct {
	ID uint `gorm:"primaryKey;autoIncrement;->" json:"id"`

	AppID       *uint        `gorm:"index" json:"app_id"`
	Application *Application `gorm:"foreignKey:AppID;references:ID" json:"-"`

	EventType string `gorm:"type:text;not null" json:"event_type"`
	Payload   string `gorm:"type:text;default:'{}'" json:"payload"`

	CreatedAt time.Time `gorm:"type:timestamp;default:CURRENT_TIMESTAMP;->" json:"created_at"`
}

// Event types appended by the workflow and screening components.
const (
	EventClassificationFailed      = "classification_failed"
	EventAutoWorkflowMatched       = "auto_workflow_matched"
	EventMatched                   = "matched"
	EventScoringFailed             = "scoring_failed"
	EventScoringRetried            = "scoring_retried"
	EventStageChanged              = "stage_changed"
	EventStageConflict             = "stage_conflict"
	EventDecision                  = "decision"
	EventInterviewLinkGenerated    = "interview_link_generated"
	EventInterviewLinkSent         = "interview_link_sent"
	EventInterviewLinkOpened       = "interview_link_opened"
	EventInterviewStarted          = "interview_started"
	EventInterviewCompleted        = "interview_completed"
	EventStatusRegressionIgnored   = "status_regression_ignored"
	EventTranscriptReceived        = "interview_transcript_received"
	EventEvaluationQueued          = "evaluation_queued"
	EventEvaluated                 = "evaluated"
	EventEvaluationFailed          = "evaluation_failed"
	EventWebhookTranscriptReceived = "webhook_transcript_received"
)
