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

// ScoreInput is the fixed request contract of the resume scoring gateway.
type ScoreInput struct {
	ResumeText     string
	JobTitle       string
	JobDescription string
	MustHave       []string
	NiceToHave     []string
}

// SkillEvidence ties one required skill to the resume passage supporting it.
type SkillEvidence struct {
	Skill    string `json:"skill"`
	Evidence string `json:"evidence"`
}

// ScoreResult is the fixed response contract of the resume scoring gateway.
type ScoreResult struct {
	Score              float64              `json:"score"`
	Recommendation     model.Recommendation `json:"recommendation"`
	CandidateSummary   string               `json:"candidate_summary"`
	MatchedSkills      []SkillEvidence      `json:"matched_skills"`
	Gaps               []string             `json:"gaps"`
	Risks              []string             `json:"risks"`
	ScreeningQuestions []string             `json:"screening_questions"`
}

// vendorScoreResponse is the nested schema the live scoring agent returns.
// It is flattened into ScoreResult before leaving this package.
type vendorScoreResponse struct {
	CandidateSummary string `json:"candidate_summary"`
	Match            struct {
		Score    float64 `json:"score"`
		Evidence []struct {
			Skill          string `json:"skill"`
			ResumeEvidence string `json:"resume_evidence"`
		} `json:"evidence"`
		Gaps           []string `json:"gaps"`
		Risks          []string `json:"risks"`
		Recommendation string   `json:"recommendation"`
	} `json:"match"`
	ScreeningQuestions []string `json:"screening_questions"`
}

// Scorer rates a resume against one job.
type Scorer struct {
	db      *gorm.DB
	client  *Client
	agentID string
}

// NewScorer constructs the resume scoring gateway.
func NewScorer(db *gorm.DB, client *Client) *Scorer {
	return &Scorer{
		db:      db,
		client:  client,
		agentID: os.Getenv("RESUME_SCORER_AGENT_ID"),
	}
}

// Score rates one resume against one job. Unlike classification, scoring
// failures are returned to the caller so the workflow can record the attempt
// and leave the application unscored.
func (s *Scorer) Score(ctx context.Context, in ScoreInput) (ScoreResult, error) {
	if s.client.useMock("RESUME_SCORER") || s.agentID == "" {
		res := s.mockScore(in)
		logUsage(s.db, "resume_scorer", "mock", 0, 0, 5*time.Millisecond, "success")
		return res, nil
	}

	content := fmt.Sprintf(
		"job_title: %s\nmust_have: %s\nnice_to_have: %s\njob_description: %s\n\nresume:\n%s",
		in.JobTitle, strings.Join(in.MustHave, ", "), strings.Join(in.NiceToHave, ", "),
		in.JobDescription, in.ResumeText,
	)

	start := time.Now()
	reply, err := s.client.Converse(ctx, s.agentID, content)
	if err != nil {
		logUsage(s.db, "resume_scorer", "live", approxTokens(content), 0, time.Since(start), "error")
		return ScoreResult{}, fmt.Errorf("scoring gateway: %w", err)
	}

	var vendor vendorScoreResponse
	if err := json.Unmarshal([]byte(stripFences(reply)), &vendor); err != nil {
		logUsage(s.db, "resume_scorer", "live", approxTokens(content), approxTokens(reply), time.Since(start), "error")
		return ScoreResult{}, fmt.Errorf("scoring gateway: malformed response: %w", err)
	}

	res := flattenScore(vendor)
	if res.Score < 0 || res.Score > 100 || !res.Recommendation.Valid() {
		logUsage(s.db, "resume_scorer", "live", approxTokens(content), approxTokens(reply), time.Since(start), "error")
		return ScoreResult{}, fmt.Errorf("scoring gateway: invalid payload (score=%.1f, recommendation=%q)", res.Score, res.Recommendation)
	}

	logUsage(s.db, "resume_scorer", "live", approxTokens(content), approxTokens(reply), time.Since(start), "success")
	return res, nil
}

func flattenScore(v vendorScoreResponse) ScoreResult {
	res := ScoreResult{
		Score:              v.Match.Score,
		CandidateSummary:   v.CandidateSummary,
		Gaps:               v.Match.Gaps,
		Risks:              v.Match.Risks,
		ScreeningQuestions: v.ScreeningQuestions,
	}
	for _, e := range v.Match.Evidence {
		res.MatchedSkills = append(res.MatchedSkills, SkillEvidence{Skill: e.Skill, Evidence: e.ResumeEvidence})
	}
	// The vendor agent speaks in recruiting verbs; screen and shortlist both
	// mean the candidate should move forward.
	switch strings.ToLower(v.Match.Recommendation) {
	case "screen", "shortlist", "advance":
		res.Recommendation = model.RecommendationAdvance
	case "reject":
		res.Recommendation = model.RecommendationReject
	default:
		res.Recommendation = model.RecommendationHold
	}
	return res
}

// mockScore rates the resume by skill coverage: must-have matches dominate,
// nice-to-have matches top it up.
func (s *Scorer) mockScore(in ScoreInput) ScoreResult {
	resume := strings.ToLower(in.ResumeText)

	var matched []SkillEvidence
	var gaps []string
	mustHits := 0
	for _, skill := range in.MustHave {
		if strings.Contains(resume, strings.ToLower(skill)) {
			mustHits++
			matched = append(matched, SkillEvidence{
				Skill:    skill,
				Evidence: fmt.Sprintf("Resume mentions %s", skill),
			})
		} else {
			gaps = append(gaps, skill)
		}
	}
	niceHits := 0
	for _, skill := range in.NiceToHave {
		if strings.Contains(resume, strings.ToLower(skill)) {
			niceHits++
			matched = append(matched, SkillEvidence{
				Skill:    skill,
				Evidence: fmt.Sprintf("Resume mentions %s", skill),
			})
		}
	}

	mustRatio := 1.0
	if len(in.MustHave) > 0 {
		mustRatio = float64(mustHits) / float64(len(in.MustHave))
	}
	niceRatio := 1.0
	if len(in.NiceToHave) > 0 {
		niceRatio = float64(niceHits) / float64(len(in.NiceToHave))
	}

	score := math.Min(40+mustRatio*40+niceRatio*15+5, 98)
	score = math.Round(score)

	rec := model.RecommendationReject
	switch {
	case score >= 70:
		rec = model.RecommendationAdvance
	case score >= 50:
		rec = model.RecommendationHold
	}

	var risks []string
	if mustRatio < 1 {
		risks = append(risks, "Missing required skills may need verification in screening")
	}

	return ScoreResult{
		Score:            score,
		Recommendation:   rec,
		CandidateSummary: fmt.Sprintf("Candidate matches %d of %d required skills for %s.", mustHits, len(in.MustHave), in.JobTitle),
		MatchedSkills:    matched,
		Gaps:             gaps,
		Risks:            risks,
		ScreeningQuestions: []string{
			fmt.Sprintf("Walk me through your most relevant experience for the %s role.", in.JobTitle),
			"Which of the listed skills have you used in production, and at what scale?",
		},
	}
}
