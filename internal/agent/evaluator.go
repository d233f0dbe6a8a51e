package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"hireops-backend/internal/model"
)

// EvaluateInput is the fixed request contract of the interview evaluation
// gateway.
type EvaluateInput struct {
	Transcript  string
	JobTitle    string
	MustHave    []string
	ResumeScore *float64
}

// EvaluateResult is the fixed response contract of the interview evaluation
// gateway.
type EvaluateResult struct {
	Score          float64              `json:"score"`
	Recommendation model.Recommendation `json:"recommendation"`
	Summary        string               `json:"summary"`
	Strengths      []string             `json:"strengths"`
	Concerns       []string             `json:"concerns"`
	Ratings        map[string]float64   `json:"ratings"`
	EmailDraft     string               `json:"email_draft"`
	SuggestedSlots []string             `json:"suggested_slots"`
}

// Evaluator rates a completed screening interview transcript.
type Evaluator struct {
	db      *gorm.DB
	client  *Client
	agentID string
}

// NewEvaluator constructs the interview evaluation gateway.
func NewEvaluator(db *gorm.DB, client *Client) *Evaluator {
	return &Evaluator{
		db:      db,
		client:  client,
		agentID: os.Getenv("INTERVIEW_EVALUATOR_AGENT_ID"),
	}
}

// Evaluate rates one interview transcript. Failures are returned so the
// caller can record them and retry; the transcript itself is never lost.
func (e *Evaluator) Evaluate(ctx context.Context, in EvaluateInput) (EvaluateResult, error) {
	if e.client.useMock("INTERVIEW_EVALUATOR") || e.agentID == "" {
		res := e.mockEvaluate(in)
		logUsage(e.db, "interview_evaluator", "mock", 0, 0, 5*time.Millisecond, "success")
		return res, nil
	}

	content := fmt.Sprintf(
		"job_title: %s\nmust_have: %s\nresume_score: %s\n\ntranscript:\n%s",
		in.JobTitle, strings.Join(in.MustHave, ", "), formatScore(in.ResumeScore), in.Transcript,
	)

	start := time.Now()
	reply, err := e.client.Converse(ctx, e.agentID, content)
	if err != nil {
		logUsage(e.db, "interview_evaluator", "live", approxTokens(content), 0, time.Since(start), "error")
		return EvaluateResult{}, fmt.Errorf("evaluation gateway: %w", err)
	}

	var res EvaluateResult
	if err := json.Unmarshal([]byte(stripFences(reply)), &res); err != nil {
		logUsage(e.db, "interview_evaluator", "live", approxTokens(content), approxTokens(reply), time.Since(start), "error")
		return EvaluateResult{}, fmt.Errorf("evaluation gateway: malformed response: %w", err)
	}
	if res.Score < 0 || res.Score > 100 || !res.Recommendation.Valid() {
		logUsage(e.db, "interview_evaluator", "live", approxTokens(content), approxTokens(reply), time.Since(start), "error")
		return EvaluateResult{}, fmt.Errorf("evaluation gateway: invalid payload (score=%.1f, recommendation=%q)", res.Score, res.Recommendation)
	}

	logUsage(e.db, "interview_evaluator", "live", approxTokens(content), approxTokens(reply), time.Since(start), "success")
	return res, nil
}

func formatScore(s *float64) string {
	if s == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.0f", *s)
}

// mockEvaluate derives the interview score from the resume score so the two
// stay plausibly correlated in demos.
func (e *Evaluator) mockEvaluate(in EvaluateInput) EvaluateResult {
	base := 60.0
	if in.ResumeScore != nil {
		base = *in.ResumeScore
	}
	score := math.Round(math.Min(base*0.7+20, 95))

	rec := model.RecommendationReject
	switch {
	case score >= 70:
		rec = model.RecommendationAdvance
	case score >= 50:
		rec = model.RecommendationHold
	}

	emailDraft := fmt.Sprintf(
		"Hi,\n\nThank you for completing the screening interview for the %s role. We would like to invite you to the next round. Please pick a slot that works for you.\n\nBest regards,\nThe Hiring Team",
		in.JobTitle,
	)
	if rec == model.RecommendationReject {
		emailDraft = fmt.Sprintf(
			"Hi,\n\nThank you for taking the time to interview for the %s role. After careful consideration we have decided not to move forward at this time.\n\nBest regards,\nThe Hiring Team",
			in.JobTitle,
		)
	}

	monday := time.Now().AddDate(0, 0, 7-int(time.Now().Weekday())+1)
	return EvaluateResult{
		Score:          score,
		Recommendation: rec,
		Summary:        fmt.Sprintf("Candidate answered the screening questions for the %s role coherently.", in.JobTitle),
		Strengths:      []string{"Clear communication", "Relevant hands-on experience"},
		Concerns:       []string{"Depth on some required skills not fully probed"},
		Ratings: map[string]float64{
			"communication":   math.Min(score+5, 100),
			"technical_depth": math.Max(score-5, 0),
			"role_fit":        score,
		},
		EmailDraft: emailDraft,
		SuggestedSlots: []string{
			monday.Format("2006-01-02") + " 10:00",
			monday.Format("2006-01-02") + " 14:00",
			monday.AddDate(0, 0, 1).Format("2006-01-02") + " 11:00",
		},
	}
}
