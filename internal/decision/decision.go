// Package decision computes the final pipeline recommendation from resume and
// interview scores. It is pure: no database, no clock, no network.
package decision

import (
	"errors"
	"math"
	"os"
	"strconv"

	"hireops-backend/internal/model"
)

// ErrIncompleteScores indicates a decision was requested before both scores
// were available.
var ErrIncompleteScores = errors.New("both resume and interview scores are required")

const (
	resumeWeight    = 0.4
	interviewWeight = 0.6

	defaultResumeMin    = 80.0
	defaultInterviewMin = 75.0
	defaultRejectBelow  = 50.0
)

// Thresholds are the per-deployment decision cutoffs.
type Thresholds struct {
	ResumeMin    float64
	InterviewMin float64
	RejectBelow  float64
}

// DefaultThresholds returns the deployment thresholds, reading the
// DECISION_RESUME_MIN, DECISION_INTERVIEW_MIN and DECISION_REJECT_BELOW
// environment overrides when set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ResumeMin:    envFloat("DECISION_RESUME_MIN", defaultResumeMin),
		InterviewMin: envFloat("DECISION_INTERVIEW_MIN", defaultInterviewMin),
		RejectBelow:  envFloat("DECISION_REJECT_BELOW", defaultRejectBelow),
	}
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

// Result is the outcome of one decision.
type Result struct {
	FinalScore     float64              `json:"final_score"`
	Recommendation model.Recommendation `json:"recommendation"`
}

// Decide combines resume and interview scores into a final score and a
// recommendation. The final score weighs the interview over the resume.
// Advancing requires both individual scores to clear their minimums; a low
// final score rejects; everything else holds for human review.
func Decide(resumeScore, interviewScore *float64, t Thresholds) (Result, error) {
	if resumeScore == nil || interviewScore == nil {
		return Result{}, ErrIncompleteScores
	}

	r, i := *resumeScore, *interviewScore
	final := math.Round(resumeWeight*r + interviewWeight*i)

	rec := model.RecommendationHold
	switch {
	case r >= t.ResumeMin && i >= t.InterviewMin:
		rec = model.RecommendationAdvance
	case final < t.RejectBelow:
		rec = model.RecommendationReject
	}

	return Result{FinalScore: final, Recommendation: rec}, nil
}
