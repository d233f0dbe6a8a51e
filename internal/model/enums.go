// Package model contain gorm model for recording data to database
package model

import "fmt"

// Stage is an Application's position in the hiring funnel. Values are stored
// as plain text columns; unknown strings are rejected at the handler boundary.
type Stage string

// Pipeline stages, in funnel order.
const (
	StageNew                Stage = "new"
	StageClassified         Stage = "classified"
	StageMatched            Stage = "matched"
	StageScreeningScheduled Stage = "screening_scheduled"
	StageScreened           Stage = "screened"
	StageShortlisted        Stage = "shortlisted"
	StageRejected           Stage = "rejected"
)

// PipelineStages lists every stage in funnel order, used by reports.
var PipelineStages = []Stage{
	StageNew, StageClassified, StageMatched,
	StageScreeningScheduled, StageScreened,
	StageShortlisted, StageRejected,
}

var stageRank = map[Stage]int{
	StageNew:                0,
	StageClassified:         1,
	StageMatched:            2,
	StageScreeningScheduled: 3,
	StageScreened:           4,
	StageShortlisted:        5,
	StageRejected:           5,
}

// Valid reports whether s is a known stage value.
func (s Stage) Valid() bool {
	_, ok := stageRank[s]
	return ok
}

// Terminal reports whether s is a terminal stage.
func (s Stage) Terminal() bool {
	return s == StageShortlisted || s == StageRejected
}

// CanAdvanceTo reports whether an automatic transition from s to next moves
// forward along the funnel. Manual HR commands bypass this check.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	return stageRank[next] > stageRank[s]
}

// ParseStage validates a stage string coming in from a request.
func ParseStage(v string) (Stage, error) {
	s := Stage(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", v)
	}
	return s, nil
}

// Recommendation is the categorical output of the decision engine.
type Recommendation string

// Recommendation values.
const (
	RecommendationAdvance Recommendation = "advance"
	RecommendationHold    Recommendation = "hold"
	RecommendationReject  Recommendation = "reject"
)

// Valid reports whether r is a known recommendation value.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationAdvance, RecommendationHold, RecommendationReject:
		return true
	}
	return false
}

// ParseRecommendation validates a recommendation string.
func ParseRecommendation(v string) (Recommendation, error) {
	r := Recommendation(v)
	if !r.Valid() {
		return "", fmt.Errorf("unknown recommendation %q", v)
	}
	return r, nil
}

// LinkStatus is an InterviewLink's lifecycle position.
type LinkStatus string

// Interview link lifecycle. Expired is reachable from any non-terminal
// status once the expiry timestamp has passed.
const (
	LinkStatusGenerated          LinkStatus = "generated"
	LinkStatusSent               LinkStatus = "sent"
	LinkStatusOpened             LinkStatus = "opened"
	LinkStatusInterviewStarted   LinkStatus = "interview_started"
	LinkStatusInterviewCompleted LinkStatus = "interview_completed"
	LinkStatusExpired            LinkStatus = "expired"
)

var linkStatusRank = map[LinkStatus]int{
	LinkStatusGenerated:          0,
	LinkStatusSent:               1,
	LinkStatusOpened:             2,
	LinkStatusInterviewStarted:   3,
	LinkStatusInterviewCompleted: 4,
}

// Valid reports whether l is a known link status.
func (l LinkStatus) Valid() bool {
	if l == LinkStatusExpired {
		return true
	}
	_, ok := linkStatusRank[l]
	return ok
}

// Rank returns the monotonic ordering position of l. Expired has no rank.
func (l LinkStatus) Rank() (int, bool) {
	r, ok := linkStatusRank[l]
	return r, ok
}

// ParseLinkStatus validates a link status string.
func ParseLinkStatus(v string) (LinkStatus, error) {
	l := LinkStatus(v)
	if !l.Valid() {
		return "", fmt.Errorf("unknown link status %q", v)
	}
	return l, nil
}

// JobStatus is a Job's open/closed/paused state.
type JobStatus string

// Job status values.
const (
	JobStatusOpen   JobStatus = "open"
	JobStatusClosed JobStatus = "closed"
	JobStatusPaused JobStatus = "paused"
)

// Valid reports whether j is a known job status.
func (j JobStatus) Valid() bool {
	switch j {
	case JobStatusOpen, JobStatusClosed, JobStatusPaused:
		return true
	}
	return false
}

// ParseJobStatus validates a job status string.
func ParseJobStatus(v string) (JobStatus, error) {
	j := JobStatus(v)
	if !j.Valid() {
		return "", fmt.Errorf("unknown job status %q", v)
	}
	return j, nil
}
